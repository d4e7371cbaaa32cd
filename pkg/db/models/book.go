package models

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry that can be lent out. This service never writes it.
type Book struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Author      string    `gorm:"column:author;not null"`
	ISBN        string    `gorm:"column:isbn;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	OwnedBy     uuid.UUID `gorm:"column:owned_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Book) TableName() string { return "books" }
