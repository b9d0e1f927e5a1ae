package types

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// Storefront platforms purchases can be verified against
type Platform struct {
	ID     uint8  `gorm:"primaryKey"`
	Name   string `gorm:"size:32;unique;not null"`
	Kind   string `gorm:"size:16;not null"` // "flat" or "orders"
	URL    string `gorm:"size:256;not null"`
	APIKey string `gorm:"size:256;not null"`
	Active bool   `gorm:"default:true"`
}

// Product to Discord role mappings, one row per purchasable product
type ProductRole struct {
	ID         uint32   `gorm:"primaryKey"`
	PlatformID uint8    `gorm:"index;not null"`
	ProductID  string   `gorm:"size:128;not null"`
	RoleID     string   `gorm:"size:64;not null"`
	Platform   Platform `gorm:"foreignKey:PlatformID;references:ID"`
}
