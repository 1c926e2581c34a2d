package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/kendall-kelly/service-crm-api/utils"
)

// ImageService stores order photos
type ImageService interface {
	// UploadOrderImage validates and uploads a photo for an order, returns the storage key
	UploadOrderImage(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, key string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, key string) error
}

// S3ImageService implements ImageService on top of an S3Interface
type S3ImageService struct {
	s3  S3Interface
	now func() time.Time
}

// NewImageService creates an image service backed by storage
func NewImageService(storage S3Interface) *S3ImageService {
	return &S3ImageService{s3: storage, now: time.Now}
}

// OrderImageKey builds the storage key of an order photo
func OrderImageKey(orderID uint, uploadedAt time.Time, filename string) string {
	return fmt.Sprintf("orders/%d/%d_%s", orderID, uploadedAt.Unix(), filepath.Base(filename))
}

// UploadOrderImage validates the file and uploads it
func (s *S3ImageService) UploadOrderImage(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := OrderImageKey(orderID, s.now(), fileHeader.Filename)
	if err := s.s3.UploadFile(ctx, key, fileHeader); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for an image
func (s *S3ImageService) GetImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	url, err := s.s3.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from storage
func (s *S3ImageService) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.s3.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
