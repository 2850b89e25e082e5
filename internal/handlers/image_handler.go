package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ghibli-paint/backend/internal/middleware"
	"github.com/ghibli-paint/backend/internal/services"
	"github.com/ghibli-paint/backend/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ImageHandler struct {
	imageService   *services.ImageService
	storageService *services.StorageService
}

func NewImageHandler(imageService *services.ImageService, storageService *services.StorageService) *ImageHandler {
	return &ImageHandler{
		imageService:   imageService,
		storageService: storageService,
	}
}

// GenerateFromText handles text-to-image generation
// POST /api/images/generate/text-to-image
func (h *ImageHandler) GenerateFromText(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !validation.ValidatePrompt(req.Prompt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	image, err := h.imageService.GenerateFromText(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		h.renderGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, image)
}

// GenerateFromImage handles image-to-image generation
// POST /api/images/generate/image-to-image
// Multipart form: prompt (required), image (required)
func (h *ImageHandler) GenerateFromImage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	prompt := c.PostForm("prompt")

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}

	source := &services.SourceImage{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}

	image, err := h.imageService.GenerateFromImage(c.Request.Context(), userID, prompt, source)
	if err != nil {
		h.renderGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, image)
}

// GetGallery lists the caller's generated images, most recent first
// GET /api/images/gallery
func (h *ImageHandler) GetGallery(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	images, err := h.imageService.GetUserImages(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve images"})
		return
	}

	c.JSON(http.StatusOK, images)
}

// DeleteImage removes an owned image and its file
// DELETE /api/images/:imageId
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image ID"})
		return
	}

	if err := h.imageService.DeleteImage(userID, imageID); err != nil {
		h.renderOwnershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image deleted successfully"})
}

// DownloadImage streams an owned image as an attachment
// GET /api/images/download/:imageId
func (h *ImageHandler) DownloadImage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image ID"})
		return
	}

	image, err := h.imageService.GetUserImage(userID, imageID)
	if err != nil {
		h.renderOwnershipError(c, err)
		return
	}

	if !h.storageService.Exists(image.ImagePath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "image file not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", image.OriginalFilename))
	c.Header("Content-Type", "image/png")
	c.File(image.ImagePath)
}

// ServeImage serves a generated file directly by name, unauthenticated
// GET /api/images/serve/:filename
func (h *ImageHandler) ServeImage(c *gin.Context) {
	path, ok := h.storageService.Resolve(c.Param("filename"))
	if !ok || !h.storageService.Exists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(path)
}

// renderGenerationError maps generation failures: validation problems are the
// caller's fault, upstream failures are a bad gateway, the rest is internal.
func (h *ImageHandler) renderGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyPrompt), errors.Is(err, services.ErrPromptTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.IsUpstreamError(err):
		log.Printf("Image generation upstream error: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image generation failed"})
	default:
		log.Printf("Image generation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate image"})
	}
}

// renderOwnershipError collapses "absent" and "someone else's" into one 404
// so record existence never leaks across users.
func (h *ImageHandler) renderOwnershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrImageNotFound), errors.Is(err, services.ErrNotImageOwner):
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
	default:
		log.Printf("Image lookup error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
