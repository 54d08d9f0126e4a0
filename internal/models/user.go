package models

import "time"

// User represents an admin-panel user of the dealership.
type User struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name                 string     `json:"name" gorm:"type:varchar(100)" bson:"name" validate:"required,min=2,max=100"`
	Email                string     `json:"email" gorm:"uniqueIndex;type:varchar(255)" bson:"email" validate:"required,email"`
	Password             string     `json:"-" gorm:"type:varchar(255)" bson:"password" validate:"required,min=6"` // bcrypt hash once stored
	ResetPasswordToken   string     `json:"-" gorm:"type:varchar(64);index" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time `json:"-" bson:"resetPasswordExpires,omitempty"`
	CreatedAt            time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updatedAt"`
}
