package model

import "time"

// Feature is one feature catalog row.
type Feature struct {
	ID                uint64    `gorm:"primaryKey;column:feature_id"`
	Code              string    `gorm:"column:code;uniqueIndex;size:64"`
	Name              string    `gorm:"column:name"`
	Description       string    `gorm:"column:description"`
	Category          string    `gorm:"column:category;index"`
	IsCore            bool      `gorm:"column:is_core;default:false"`
	IsPremium         bool      `gorm:"column:is_premium;default:false"`
	IsAddOn           bool      `gorm:"column:is_add_on;default:false"`
	AddOnPriceMonthly float64   `gorm:"column:add_on_price_monthly"`
	AddOnPriceYearly  float64   `gorm:"column:add_on_price_yearly"`
	IsActive          bool      `gorm:"column:is_active;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (Feature) TableName() string { return "feature" }
