package utils

import (
	"fmt"

	"aiacard/config"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Cloudinary returns a client built from CLOUDINARY_* settings, or nil when
// no cloud name is configured.
func Cloudinary() (*cloudinary.Cloudinary, error) {
	cfg := config.AppConfig
	if cfg.CloudinaryCloudName == "" {
		GetLogger().Info("cloudinary: not configured, photo upload disabled")
		return nil, nil
	}
	if cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("utils.Cloudinary: failed to initialize Cloudinary: %w", err)
	}
	return cld, nil
}
