package model

import "time"

const (
	RoleUser      = "User"
	RoleCorporate = "Corporate"

	VisibilityPublic  = "Public"
	VisibilityPrivate = "Private"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Username string `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Password string `gorm:"type:varchar(255);not null" json:"-"` // bcrypt 哈希
	Bio      string `gorm:"type:varchar(500)" json:"bio"`
	Avatar   string `gorm:"type:varchar(500)" json:"avatar_url"`

	Role       string `gorm:"type:varchar(20);not null;default:'User'" json:"role"`
	Visibility string `gorm:"type:varchar(20);not null;default:'Public'" json:"visibility"`

	Searchable             bool `gorm:"not null;default:true" json:"searchable"`
	ShowEmail              bool `gorm:"not null;default:false" json:"show_email"`
	RecommendationsEnabled bool `gorm:"not null;default:true" json:"recommendations_enabled"`
	PersonalizedAds        bool `gorm:"not null;default:true" json:"personalized_ads"`
	IsDeactivated          bool `gorm:"not null;default:false" json:"is_deactivated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
