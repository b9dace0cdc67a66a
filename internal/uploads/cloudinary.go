package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary uploads images through the Cloudinary API using a fixed upload
// preset and returns the secure URL from the response. Used for provider
// profile and work images.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	preset string
}

func NewCloudinary(cloudName, apiKey, apiSecret, preset string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, preset: preset}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	folder := path.Dir(objectPath)
	publicID := strings.TrimSuffix(path.Base(objectPath), path.Ext(objectPath))

	result, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		UploadPreset: c.preset,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned no URL for %s", objectPath)
	}
	return result.SecureURL, nil
}
