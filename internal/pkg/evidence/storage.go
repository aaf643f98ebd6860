package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/melkbazar/MelkBazar/internal/pkg/constants"
	"github.com/melkbazar/MelkBazar/internal/pkg/env"
)

// Storage persists uploaded receipts and hands back opaque keys. The payment
// core never interprets a key beyond passing it to URL.
type Storage interface {
	Store(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
	Delete(ctx context.Context, key string) error
}

// Config holds evidence storage configuration.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string
	LocalDir        string
	UseS3           bool
}

// LoadConfig loads evidence storage configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		LocalDir:        env.GetEnv("EVIDENCE_LOCAL_DIR", "./uploads/receipts"),
		UseS3:           env.GetEnv("EVIDENCE_STORAGE", "local") == "s3",
	}

	if cfg.UseS3 {
		if cfg.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when evidence storage is s3")
		}
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when evidence storage is s3")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when evidence storage is s3")
		}
	}
	return cfg, nil
}

// NewStorage builds the configured storage backend.
func NewStorage(cfg *Config) (Storage, error) {
	if cfg.UseS3 {
		return newS3Storage(cfg)
	}
	return newLocalStorage(cfg.LocalDir), nil
}

type s3Storage struct {
	client *s3.Client
	cfg    *Config
}

func newS3Storage(cfg *Config) (*s3Storage, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible backends (MinIO, B2) need path-style URLs.
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	log.Infof("[Evidence] Using S3 storage, bucket: %s", cfg.BucketName)
	return &s3Storage{client: client, cfg: cfg}, nil
}

func (s *s3Storage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put receipt %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) URL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.EndpointURL, "/"), s.cfg.BucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.BucketName, s.cfg.Region, key)
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	return err
}

// localStorage writes receipts under a directory on disk. Used in dev and in
// tests; keys map directly onto file paths.
type localStorage struct {
	baseDir string
}

func newLocalStorage(baseDir string) *localStorage {
	return &localStorage{baseDir: baseDir}
}

func (l *localStorage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	_ = ctx
	_ = contentType
	path := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write receipt %s: %w", key, err)
	}
	return nil
}

func (l *localStorage) URL(key string) string {
	return constants.ReceiptsRoute + "/" + key
}

func (l *localStorage) Delete(ctx context.Context, key string) error {
	_ = ctx
	return os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(key)))
}
