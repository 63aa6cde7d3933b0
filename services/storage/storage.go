package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"aiacard/utils"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

const DefaultPhotoFolder = "aiacard/profile-photos"

var ErrEmptyUpload = errors.New("uploaded file is empty")

// Uploader is the subset of the Cloudinary upload API in use. *uploader.API
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// PhotoStore keeps one profile photo per account.
type PhotoStore interface {
	UploadProfilePhoto(ctx context.Context, accountID string, file io.Reader) (string, error)
	DeleteProfilePhoto(ctx context.Context, accountID string) error
}

// CloudinaryPhotoStore stores photos under folder/<accountID>, overwriting
// the previous one.
type CloudinaryPhotoStore struct {
	upload Uploader
	folder string
}

// NewStorageService wraps a Cloudinary client.
func NewStorageService(cld *cloudinary.Cloudinary, folder string) *CloudinaryPhotoStore {
	return NewPhotoStore(&cld.Upload, folder)
}

func NewPhotoStore(up Uploader, folder string) *CloudinaryPhotoStore {
	if folder == "" {
		folder = DefaultPhotoFolder
	}
	return &CloudinaryPhotoStore{upload: up, folder: folder}
}

// UploadProfilePhoto uploads file and returns its HTTPS URL.
func (s *CloudinaryPhotoStore) UploadProfilePhoto(ctx context.Context, accountID string, file io.Reader) (string, error) {
	if file == nil {
		return "", ErrEmptyUpload
	}
	result, err := s.upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     accountID,
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to upload photo: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("storage: cloudinary rejected upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("storage: no URL returned")
	}

	utils.GetLogger().Info("profile photo uploaded",
		zap.String("accountId", accountID),
		zap.String("publicId", result.PublicID))
	return result.SecureURL, nil
}

func (s *CloudinaryPhotoStore) DeleteProfilePhoto(ctx context.Context, accountID string) error {
	_, err := s.upload.Destroy(ctx, uploader.DestroyParams{PublicID: s.folder + "/" + accountID})
	if err != nil {
		return fmt.Errorf("storage: failed to delete photo: %w", err)
	}
	return nil
}
