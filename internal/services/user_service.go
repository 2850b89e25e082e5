package services

import (
	"errors"

	"github.com/ghibli-paint/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotAccountOwner is returned when a user tries to delete an account other
// than their own.
var ErrNotAccountOwner = errors.New("not authorized to delete this account")

type UserService struct {
	db           *gorm.DB
	imageService *ImageService
}

func NewUserService(db *gorm.DB, imageService *ImageService) *UserService {
	return &UserService{db: db, imageService: imageService}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeleteAccount removes a user account together with their generated images,
// artifacts and refresh tokens. Users may only delete their own account.
func (s *UserService) DeleteAccount(callerID, targetID uuid.UUID) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.ID != callerID {
		return ErrNotAccountOwner
	}

	// Artifacts are removed outside the transaction; the row deletes are
	// atomic.
	if err := s.imageService.DeleteAllForUser(targetID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", targetID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}
