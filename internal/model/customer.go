package model

import "time"

// Customer is identified by phone number at the till; created on first
// sight and reused afterwards.
type Customer struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"type:varchar(120);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(20);unique;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
