package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImageType string

const (
	ImageTypeTextToImage  ImageType = "text-to-image"
	ImageTypeImageToImage ImageType = "image-to-image"
)

// GeneratedImage is one AI-generated artifact owned by a single user.
// Rows are created only by a successful generation call and never updated;
// the owner is fixed at creation.
type GeneratedImage struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Prompt           string    `gorm:"size:1000;not null" json:"prompt"`
	ImagePath        string    `gorm:"size:1000;not null" json:"image_path"`
	ImageType        ImageType `gorm:"size:32" json:"image_type"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// Relation
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (g *GeneratedImage) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
