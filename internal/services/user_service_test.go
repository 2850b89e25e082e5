package services

import (
	"context"
	"testing"

	"github.com/ghibli-paint/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAccountCascades(t *testing.T) {
	gen := &fakeGenerator{result: []byte("img")}
	imageSvc, storage, db := newTestImageService(t, gen)
	svc := NewUserService(db, imageSvc)

	user := &models.User{Username: "miyazaki", Email: "hayao@example.com", Password: "x", FullName: "Hayao Miyazaki"}
	require.NoError(t, db.Create(user).Error)

	image, err := imageSvc.GenerateFromText(context.Background(), user.ID, "a cat")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RefreshToken{UserID: user.ID, Token: "tok"}).Error)

	require.NoError(t, svc.DeleteAccount(user.ID, user.ID))

	assert.False(t, storage.Exists(image.ImagePath))

	var imageCount, tokenCount, userCount int64
	require.NoError(t, db.Model(&models.GeneratedImage{}).Count(&imageCount).Error)
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&tokenCount).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Zero(t, imageCount)
	assert.Zero(t, tokenCount)
	assert.Zero(t, userCount)
}

func TestDeleteAccountSelfOnly(t *testing.T) {
	gen := &fakeGenerator{result: []byte("img")}
	imageSvc, _, db := newTestImageService(t, gen)
	svc := NewUserService(db, imageSvc)

	user := &models.User{Username: "miyazaki", Email: "hayao@example.com", Password: "x", FullName: "Hayao Miyazaki"}
	require.NoError(t, db.Create(user).Error)

	err := svc.DeleteAccount(uuid.New(), user.ID)
	assert.ErrorIs(t, err, ErrNotAccountOwner)

	err = svc.DeleteAccount(user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(1), userCount)
}

func TestGetUserByID(t *testing.T) {
	gen := &fakeGenerator{result: []byte("img")}
	imageSvc, _, db := newTestImageService(t, gen)
	svc := NewUserService(db, imageSvc)

	user := &models.User{Username: "miyazaki", Email: "hayao@example.com", Password: "x", FullName: "Hayao Miyazaki"}
	require.NoError(t, db.Create(user).Error)

	got, err := svc.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	_, err = svc.GetUserByID(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
