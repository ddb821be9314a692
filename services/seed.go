package services

import (
	"log"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// starterQuests keep a fresh deployment assignable before admins curate the catalog.
var starterQuests = []models.Quest{
	{Title: "Morning movement", Description: "Ten minutes of stretching or a short walk before screens.", Category: "health", BaseXP: 50},
	{Title: "Deep work block", Description: "45 uninterrupted minutes on your most important task.", Category: "focus", BaseXP: 50},
	{Title: "Read ten pages", Description: "Any book counts. Audiobooks count too.", Category: "learning", BaseXP: 50},
	{Title: "Hydration check", Description: "Eight glasses across the day.", Category: "health", BaseXP: 50},
	{Title: "Tidy sweep", Description: "Reset one surface, shelf or folder.", Category: "environment", BaseXP: 50},
}

// SeedCatalog inserts the static catalogs (power-ups, badges, starter quests)
// with insert-if-absent semantics. Safe to run on every boot.
func SeedCatalog(db *gorm.DB) error {
	for _, put := range models.DefaultPowerUps {
		row := put
		row.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}

	if err := NewBadgeService(db).SeedBadgeTypes(); err != nil {
		return err
	}

	var questCount int64
	if err := db.Model(&models.Quest{}).Count(&questCount).Error; err != nil {
		return err
	}
	if questCount == 0 {
		for _, q := range starterQuests {
			row := q
			row.ID = uuid.NewString()
			row.Active = true
			if err := db.Create(&row).Error; err != nil {
				return err
			}
		}
		log.Printf("🌱 Seeded %d starter quests", len(starterQuests))
	}
	return nil
}
