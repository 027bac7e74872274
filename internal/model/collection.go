package model

import "time"

// Collection stores one whole serialized collection (todos, categories or tags).
type Collection struct {
	Name      string `gorm:"primaryKey"`
	Payload   []byte `gorm:"not null"`
	UpdatedAt time.Time
}
