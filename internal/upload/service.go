// Package upload provides services for generating signed URLs for direct media uploads.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Allowed MIME types for uploads
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
	MIMEImageWebP = "image/webp"
)

// Upload kinds determine the key prefix for stored objects.
const (
	KindAvatar    = "avatars" // User and ONG avatars
	KindOngMedia  = "ongs"    // ONG banners and gallery photos
	KindItemPhoto = "items"   // Wishlist item photos
)

// Validation errors
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed")
	ErrInvalidKind     = errors.New("invalid upload kind")
	ErrInvalidOwnerID  = errors.New("invalid owner ID")
)

// AllowedMIMETypes maps allowed MIME types to their file extensions
var AllowedMIMETypes = map[string]string{
	MIMEImageJPEG: ".jpg",
	MIMEImagePNG:  ".png",
	MIMEImageWebP: ".webp",
}

// allowedKinds is the set of valid upload kinds.
var allowedKinds = map[string]bool{
	KindAvatar:    true,
	KindOngMedia:  true,
	KindItemPhoto: true,
}

// SignedURLRequest represents a request for a signed upload URL.
type SignedURLRequest struct {
	ContentType string  // MIME type of the file
	SizeBytes   int64   // Size of the file in bytes
	Kind        string  // Upload kind (avatars, ongs, items)
	OwnerID     *string // Owning entity ID; if nil, uses "temp"
}

// SignedURLResponse represents the response containing the signed URL and metadata.
type SignedURLResponse struct {
	URL       string    `json:"url"`        // Pre-signed PUT URL
	Key       string    `json:"key"`        // Object key in the bucket
	ExpiresAt time.Time `json:"expires_at"` // URL expiration time
}

// Service handles generating signed URLs for direct uploads.
type Service struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	maxSizeBytes  int64
	urlExpiry     time.Duration
	timeNow       func() time.Time // For testability
}

// ServiceConfig holds configuration for the upload service.
type ServiceConfig struct {
	BucketName       string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	MaxSizeMB        int
	URLExpiryMinutes int // Default: 5 minutes
}

// NewService creates a new upload service with the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	// Default values
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 15
	}
	if cfg.URLExpiryMinutes <= 0 {
		cfg.URLExpiryMinutes = 5
	}

	// S3-compatible storage with path-style addressing
	s3Client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	presignClient := s3.NewPresignClient(s3Client)

	return &Service{
		s3Client:      s3Client,
		presignClient: presignClient,
		bucketName:    cfg.BucketName,
		maxSizeBytes:  int64(cfg.MaxSizeMB) * 1024 * 1024,
		urlExpiry:     time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		timeNow:       time.Now,
	}, nil
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	if _, ok := AllowedMIMETypes[contentType]; !ok {
		return ErrUnsupportedType
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *Service) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes > s.maxSizeBytes {
		return ErrFileTooLarge
	}
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}
	return nil
}

// GenerateObjectKey creates a unique object key for the upload.
// Pattern: {kind}/{ownerID or temp}/uuid.ext
func GenerateObjectKey(contentType, kind string, ownerID *string) (string, error) {
	ext, ok := AllowedMIMETypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	if !allowedKinds[kind] {
		return "", ErrInvalidKind
	}

	// Generate UUID for uniqueness
	objectUUID := uuid.New().String()

	// Use ownerID if provided, otherwise use "temp"
	prefix := "temp"
	if ownerID != nil && *ownerID != "" {
		// Sanitize ownerID: only alphanumeric, hyphens, underscores
		sanitized := sanitizePathComponent(*ownerID)
		if sanitized == "" {
			return "", ErrInvalidOwnerID
		}
		prefix = sanitized
	}

	key := fmt.Sprintf("%s/%s/%s%s", kind, prefix, objectUUID, ext)
	return key, nil
}

// sanitizePathComponent removes potentially dangerous characters from path components.
func sanitizePathComponent(s string) string {
	// Only allow alphanumeric, hyphens, and underscores
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// GenerateSignedURL generates a pre-signed PUT URL for direct upload.
func (s *Service) GenerateSignedURL(ctx context.Context, req SignedURLRequest) (*SignedURLResponse, error) {
	// Validate content type
	if err := ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}

	// Validate file size
	if err := s.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, err
	}

	// Generate object key
	key, err := GenerateObjectKey(req.ContentType, req.Kind, req.OwnerID)
	if err != nil {
		return nil, err
	}

	// Create presigned PUT request
	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, putObjectInput, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	expiresAt := s.timeNow().Add(s.urlExpiry)

	return &SignedURLResponse{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: expiresAt,
	}, nil
}

// GetS3Client returns the S3 client used by the service.
// This can be used by other services that need to interact with the bucket.
func (s *Service) GetS3Client() *s3.Client {
	return s.s3Client
}

// GetBucketName returns the bucket name used by the service.
func (s *Service) GetBucketName() string {
	return s.bucketName
}
