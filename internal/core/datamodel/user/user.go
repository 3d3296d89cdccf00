package user

import "time"

type User struct {
	ID           int64      `gorm:"primaryKey"`
	Username     string     `gorm:"column:username;size:50;uniqueIndex;not null"`
	Email        string     `gorm:"column:email;size:100;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Name         string     `gorm:"column:name;size:100"`
	Role         string     `gorm:"column:role;size:20;not null"`
	Status       string     `gorm:"column:status;size:20;not null"`
	OrgID        *int64     `gorm:"column:org_id"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
