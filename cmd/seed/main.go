package main

import (
	"log"
	"os"

	"scanguard-be/internal/model"
	"scanguard-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gorm.io/gorm/clause"
)

func int64Ptr(v int64) *int64 { return &v }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding plan catalog...")

	// Plans are immutable: existing rows are never updated by the seeder.
	// Changing a price or limit means adding a new row and deactivating the
	// old one by hand.
	plans := []model.Plan{
		{
			Name:                  "starter",
			DisplayName:           "Starter",
			PriceMonthly:          29,
			MaxScansPerMonth:      int64Ptr(50),
			MaxCloudAccounts:      int64Ptr(3),
			HasEmailNotifications: true,
			IsActive:              true,
			SortOrder:             1,
		},
		{
			Name:                  "team",
			DisplayName:           "Team",
			PriceMonthly:          99,
			MaxScansPerMonth:      int64Ptr(500),
			MaxCloudAccounts:      int64Ptr(15),
			HasAiChat:             true,
			HasImpactTracking:     true,
			HasEmailNotifications: true,
			HasApiAccess:          true,
			IsActive:              true,
			SortOrder:             2,
		},
		{
			Name:                  "enterprise",
			DisplayName:           "Enterprise",
			PriceMonthly:          299,
			MaxScansPerMonth:      nil, // unlimited
			MaxCloudAccounts:      nil, // unlimited
			HasAiChat:             true,
			HasImpactTracking:     true,
			HasEmailNotifications: true,
			HasApiAccess:          true,
			HasPrioritySupport:    true,
			IsActive:              true,
			SortOrder:             3,
		},
	}

	for _, plan := range plans {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&plan)
		if result.Error != nil {
			log.Fatalf("Error: Failed to seed plan %s: %v", plan.Name, result.Error)
		}
		if result.RowsAffected > 0 {
			color.Green("  + %s", plan.Name)
		} else {
			color.Yellow("  = %s (already present, untouched)", plan.Name)
		}
	}

	color.Green("✅ Plan catalog seeded.")
}
