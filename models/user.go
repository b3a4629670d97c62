package models

import (
	"context"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleReviewer UserRole = "Reviewer"
)

// User is the back-office account used for session resolution and ops-endpoint
// gating. Account management itself lives in the main CRM service.
type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Name      string    `gorm:"size:160" json:"name"`
	Email     string    `gorm:"size:160" json:"email"`
	Role      UserRole  `gorm:"type:enum('Admin','Reviewer');default:'Reviewer';size:20;not null" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetUserByUsername resolves a session username, preferring the Redis copy
// written at login.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
