package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ghibli-paint/backend/internal/models"
	"github.com/ghibli-paint/backend/pkg/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Output dimensions are fixed by the upstream 1:1 aspect ratio contract.
const (
	generatedImageWidth  = 1024
	generatedImageHeight = 1024
)

// ImageGenerator produces complete image buffers from user input. Implemented
// by StabilityClient; faked in tests.
type ImageGenerator interface {
	GenerateFromText(ctx context.Context, prompt string) ([]byte, error)
	GenerateFromImage(ctx context.Context, prompt string, source *SourceImage) ([]byte, error)
}

// ImageService coordinates generation and ownership-scoped persistence.
// Every operation takes the caller's user ID explicitly; the auth middleware
// resolves it once at the request boundary.
type ImageService struct {
	db        *gorm.DB
	storage   *StorageService
	generator ImageGenerator
}

func NewImageService(db *gorm.DB, storage *StorageService, generator ImageGenerator) *ImageService {
	return &ImageService{
		db:        db,
		storage:   storage,
		generator: generator,
	}
}

// GenerateFromText generates an image from a text prompt and persists it for
// the calling user.
func (s *ImageService) GenerateFromText(ctx context.Context, userID uuid.UUID, prompt string) (*models.GeneratedImage, error) {
	prompt, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}

	imageBytes, err := s.generator.GenerateFromText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return s.persist(userID, prompt, models.ImageTypeTextToImage, imageBytes)
}

// GenerateFromImage generates an image seeded with a user-supplied source
// image and persists it for the calling user.
func (s *ImageService) GenerateFromImage(ctx context.Context, userID uuid.UUID, prompt string, source *SourceImage) (*models.GeneratedImage, error) {
	prompt, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}

	imageBytes, err := s.generator.GenerateFromImage(ctx, prompt, source)
	if err != nil {
		return nil, err
	}

	return s.persist(userID, prompt, models.ImageTypeImageToImage, imageBytes)
}

// persist writes the artifact first, then the metadata row. A metadata
// failure leaves an orphaned file, which is logged and accepted; the reverse
// ordering never happens, so a row always points at an existing artifact.
func (s *ImageService) persist(userID uuid.UUID, prompt string, imageType models.ImageType, imageBytes []byte) (*models.GeneratedImage, error) {
	filename := uuid.New().String() + ".png"

	imagePath, err := s.storage.Save(imageBytes, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save generated image: %w", err)
	}

	image := &models.GeneratedImage{
		UserID:           userID,
		Prompt:           prompt,
		ImagePath:        imagePath,
		ImageType:        imageType,
		OriginalFilename: filename,
		FileSize:         int64(len(imageBytes)),
		Width:            generatedImageWidth,
		Height:           generatedImageHeight,
	}

	if err := s.db.Create(image).Error; err != nil {
		log.Printf("Metadata insert failed, leaving orphaned artifact %s: %v", imagePath, err)
		return nil, fmt.Errorf("failed to save image record: %w", err)
	}

	return image, nil
}

// GetUserImages returns all images owned by userID, most recent first.
func (s *ImageService) GetUserImages(userID uuid.UUID) ([]models.GeneratedImage, error) {
	var images []models.GeneratedImage
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// GetUserImage returns a single image after checking ownership.
func (s *ImageService) GetUserImage(userID, imageID uuid.UUID) (*models.GeneratedImage, error) {
	image, err := s.findImage(imageID)
	if err != nil {
		return nil, err
	}
	if err := assertOwner(image, userID); err != nil {
		return nil, err
	}
	return image, nil
}

// DeleteImage removes an owned image. The artifact is removed first (a
// missing file is not an error); the metadata row is deleted regardless of
// the file removal outcome, so records never outlive their consistency.
func (s *ImageService) DeleteImage(userID, imageID uuid.UUID) error {
	image, err := s.findImage(imageID)
	if err != nil {
		return err
	}
	if err := assertOwner(image, userID); err != nil {
		return err
	}

	if err := s.storage.Remove(image.ImagePath); err != nil {
		log.Printf("Failed to remove image file %s: %v", image.ImagePath, err)
	}

	return s.db.Delete(image).Error
}

// DeleteAllForUser removes every image owned by userID, artifacts included.
// Used for cascading cleanup when an account is deleted.
func (s *ImageService) DeleteAllForUser(userID uuid.UUID) error {
	images, err := s.GetUserImages(userID)
	if err != nil {
		return err
	}

	for _, image := range images {
		if err := s.storage.Remove(image.ImagePath); err != nil {
			log.Printf("Failed to remove image file %s: %v", image.ImagePath, err)
		}
	}

	return s.db.Where("user_id = ?", userID).Delete(&models.GeneratedImage{}).Error
}

func (s *ImageService) findImage(imageID uuid.UUID) (*models.GeneratedImage, error) {
	var image models.GeneratedImage
	if err := s.db.First(&image, "id = ?", imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

// assertOwner is the single authorization guard for record-scoped reads and
// deletes.
func assertOwner(image *models.GeneratedImage, userID uuid.UUID) error {
	if image.UserID != userID {
		return ErrNotImageOwner
	}
	return nil
}

func normalizePrompt(prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", ErrEmptyPrompt
	}
	if len(trimmed) > validation.MaxPromptLength {
		return "", ErrPromptTooLong
	}
	return trimmed, nil
}
