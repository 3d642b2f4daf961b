package model

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Image     *string   `gorm:"size:512" json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
