package uploads

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCS uploads objects to a Cloud Storage bucket and returns their public
// URLs. Buckets are expected to allow public reads on the images/ prefix.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

func (g *GCS) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	if g.bucket == "" {
		return "", fmt.Errorf("storage bucket is not configured")
	}
	w := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", objectPath, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, objectPath), nil
}
