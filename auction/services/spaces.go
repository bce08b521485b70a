package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru"
)

// MaxUploadSize is the hard limit for player photos and team logos.
const MaxUploadSize = 5 << 20 // 5 MiB

const (
	photoRoot = "photos"
	logoRoot  = "logos"

	urlCacheSize = 512
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType = errors.New("invalid file type, only PNG and JPEG are accepted")
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// SpacesService stores player photos and team logos in an S3-compatible
// bucket. The rest of the system treats the returned reference as an opaque
// string; only this service knows how to turn it back into a URL.
type SpacesService struct {
	client   *s3.Client
	bucket   string
	region   string
	urlCache *lru.Cache
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	cache, err := lru.New(urlCacheSize)
	if err != nil {
		panic(fmt.Sprintf("Unable to create URL cache: %v", err))
	}

	return &SpacesService{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		urlCache: cache,
	}
}

// ValidateFile checks the upload limits without touching the network. An
// empty name with no data is allowed, uploads are optional everywhere.
func ValidateFile(data []byte, name string) error {
	if len(data) == 0 && name == "" {
		return nil
	}
	if len(data) > MaxUploadSize {
		return ErrFileTooLarge
	}
	if _, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; !ok {
		return ErrInvalidFileType
	}
	return nil
}

// StorePlayerPhoto uploads a player photo and returns its opaque reference.
func (s *SpacesService) StorePlayerPhoto(ctx context.Context, data []byte, name string) (string, error) {
	return s.store(ctx, data, name, photoRoot)
}

// StoreTeamLogo uploads a team logo and returns its opaque reference.
func (s *SpacesService) StoreTeamLogo(ctx context.Context, data []byte, name string) (string, error) {
	return s.store(ctx, data, name, logoRoot)
}

func (s *SpacesService) store(ctx context.Context, data []byte, name, root string) (string, error) {
	if err := ValidateFile(data, name); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	key := fmt.Sprintf("%s/%s_%s", root, time.Now().Format("20060102_150405"), filepath.Base(name))
	contentType := contentTypes[strings.ToLower(filepath.Ext(name))]

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", root, err)
	}

	return key, nil
}

// URL resolves a stored reference to its public URL. Lookups are cached; the
// same references are resolved over and over while an auction runs.
func (s *SpacesService) URL(ref string) string {
	if ref == "" {
		return ""
	}
	if cached, ok := s.urlCache.Get(ref); ok {
		return cached.(string)
	}

	url := fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, ref)
	s.urlCache.Add(ref, url)
	return url
}

// Delete removes a stored object. Used when a registration is abandoned
// before the player or team row is created.
func (s *SpacesService) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &ref,
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", ref, err)
	}

	s.urlCache.Remove(ref)
	return nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}
