package dto

import "github.com/google/uuid"

type PlanResponse struct {
	Id               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	DisplayName      string    `json:"display_name"`
	PriceMonthly     float64   `json:"price_monthly"`
	MaxScansPerMonth *int64    `json:"max_scans_per_month"` // null = unlimited
	MaxCloudAccounts *int64    `json:"max_cloud_accounts"`  // null = unlimited
	Features         []string  `json:"features"`
}
