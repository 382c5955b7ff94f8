package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	// MaxThumbnailSize is the maximum allowed thumbnail upload (5MB).
	MaxThumbnailSize = 5 * 1024 * 1024
	// FolderThumbnails is the S3 prefix for stream thumbnails.
	FolderThumbnails = "thumbnails"
)

// AllowedThumbnailTypes maps accepted image MIME types to the extension stored in S3.
var AllowedThumbnailTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ThumbnailsBucket     string
	CDNBaseURL           string
	PresignExpireMinutes int
}

// UploadResult describes a stored object: its S3 URL, the URL viewers should load, and the object key.
type UploadResult struct {
	URL    string `json:"url"`
	CDNURL string `json:"cdn_url"`
	Path   string `json:"path"`
}

// PresignedUpload is a direct-to-S3 PUT target plus where the object will be served once uploaded.
type PresignedUpload struct {
	UploadURL string       `json:"upload_url"`
	ExpiresIn int          `json:"expires_in"` // seconds
	Object    UploadResult `json:"object"`
}

// S3 provides thumbnail uploads and pre-signed URLs.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("bucket", cfg.ThumbnailsBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// ThumbnailExtension returns the stored extension for an image upload, or false if the type is not accepted.
// The filename extension is used when the content type is missing.
func ThumbnailExtension(contentType, filename string) (string, bool) {
	if ext, ok := AllowedThumbnailTypes[strings.ToLower(contentType)]; ok {
		return ext, true
	}
	switch ext := strings.ToLower(path.Ext(filename)); ext {
	case ".jpg", ".jpeg":
		return ".jpg", true
	case ".png", ".webp":
		return ext, true
	}
	return "", false
}

// ThumbnailKey returns the object key: thumbnails/{stream_id}/{unix_nano}{ext}.
// A new key per upload keeps CDN caches from serving a stale image.
func ThumbnailKey(streamID string, ext string, at time.Time) string {
	return path.Join(FolderThumbnails, streamID, fmt.Sprintf("%d%s", at.UnixNano(), ext))
}

// Result builds the UploadResult for key in the thumbnails bucket.
func (s *S3) Result(key string) UploadResult {
	u := s.objectURL(s.cfg.ThumbnailsBucket, key)
	cdn := u
	if s.cfg.CDNBaseURL != "" {
		cdn = strings.TrimRight(s.cfg.CDNBaseURL, "/") + "/" + key
	}
	return UploadResult{URL: u, CDNURL: cdn, Path: key}
}

func (s *S3) objectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key)
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// PresignThumbnail returns a PUT URL for a browser to upload a thumbnail directly.
func (s *S3) PresignThumbnail(ctx context.Context, streamID, contentType, filename string) (*PresignedUpload, error) {
	ext, ok := ThumbnailExtension(contentType, filename)
	if !ok {
		return nil, fmt.Errorf("unsupported thumbnail type %q", contentType)
	}
	key := ThumbnailKey(streamID, ext, time.Now())
	expires := s.PresignExpire()

	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.ThumbnailsBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	return &PresignedUpload{UploadURL: req.URL, ExpiresIn: int(expires.Seconds()), Object: s.Result(key)}, nil
}

// UploadThumbnail streams an image to the thumbnails bucket with public-read ACL.
func (s *S3) UploadThumbnail(ctx context.Context, streamID, contentType, filename string, body io.Reader, size int64) (*UploadResult, error) {
	ext, ok := ThumbnailExtension(contentType, filename)
	if !ok {
		return nil, fmt.Errorf("unsupported thumbnail type %q", contentType)
	}
	key := ThumbnailKey(streamID, ext, time.Now())

	var contentLength *int64
	if size > 0 {
		contentLength = &size
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.ThumbnailsBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLength,
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	res := s.Result(key)
	s.logger.Info("thumbnail uploaded", zap.String("stream_id", streamID), zap.String("key", key))
	return &res, nil
}
