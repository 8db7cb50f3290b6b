package service

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/simplifika/postline/configs"
)

// StorageService stores post media in an S3-compatible bucket and hands back
// public URLs that the platform adapters can fetch directly.
type StorageService struct {
	config *cfg.Config
	client *s3.Client
}

func NewStorageService(c *cfg.Config) *StorageService {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.S3.AccessKey, c.S3.SecretKey, "")),
		awsconfig.WithRegion(c.S3.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		return &StorageService{config: c}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.S3.Endpoint)
		}
	})

	return &StorageService{config: c, client: client}
}

func (s *StorageService) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return s.config.S3.PublicURL + "/" + key, nil
}

// DeleteObjects removes the blobs behind the given public URLs in one batch.
// URLs that do not resolve to a key are skipped.
func (s *StorageService) DeleteObjects(ctx context.Context, urls []string) error {
	objects := make([]types.ObjectIdentifier, 0, len(urls))
	for _, u := range urls {
		key := s.keyFromURL(u)
		if key == "" {
			slog.Info("cannot derive storage key", "url", u)
			continue
		}
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}
	if len(objects) == 0 {
		return nil
	}

	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(s.config.S3.BucketName),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	}

	_, err := s.client.DeleteObjects(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *StorageService) keyFromURL(mediaURL string) string {
	if s.config.S3.PublicURL != "" && strings.HasPrefix(mediaURL, s.config.S3.PublicURL+"/") {
		return strings.TrimPrefix(mediaURL, s.config.S3.PublicURL+"/")
	}

	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Path, "/")
}
