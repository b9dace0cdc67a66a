package config

import (
	"os"
	"strings"
)

type Config struct {
	ProjectID                    string
	Port                         string
	AllowedOrigins               []string
	StorageBucket                string
	WebAPIKey                    string
	CloudinaryCloudName          string
	CloudinaryAPIKey             string
	CloudinaryAPISecret          string
	CloudinaryUploadPreset       string
	SignedURLServiceAccountEmail string
}

func Load() Config {
	projectID := getenv("FIREBASE_PROJECT_ID", "")
	if projectID == "" {
		projectID = getenv("GOOGLE_CLOUD_PROJECT", "")
	}

	port := getenv("PORT", "8080")
	origins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	storageBucket := getenv("FIREBASE_STORAGE_BUCKET", "")
	if storageBucket == "" && projectID != "" {
		storageBucket = projectID + ".appspot.com"
	}

	// Identity Toolkit key used for email/password sign-in.
	webAPIKey := getenv("FIREBASE_WEB_API_KEY", "")

	cloudinaryCloud := getenv("CLOUDINARY_CLOUD_NAME", "")
	cloudinaryKey := getenv("CLOUDINARY_API_KEY", "")
	cloudinarySecret := getenv("CLOUDINARY_API_SECRET", "")
	cloudinaryPreset := getenv("CLOUDINARY_UPLOAD_PRESET", "unsigned_images")
	signedURLServiceAccountEmail := getenv("SIGNED_URL_SERVICE_ACCOUNT_EMAIL", "")

	allowed := []string{}
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed = append(allowed, o)
		}
	}

	return Config{
		ProjectID:                    projectID,
		Port:                         port,
		AllowedOrigins:               allowed,
		StorageBucket:                storageBucket,
		WebAPIKey:                    webAPIKey,
		CloudinaryCloudName:          cloudinaryCloud,
		CloudinaryAPIKey:             cloudinaryKey,
		CloudinaryAPISecret:          cloudinarySecret,
		CloudinaryUploadPreset:       cloudinaryPreset,
		SignedURLServiceAccountEmail: signedURLServiceAccountEmail,
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
