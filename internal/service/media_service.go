package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (url, mimeType string, err error)
}

type mediaService struct {
	storage BlobStorage
}

func NewMediaService(storage BlobStorage) MediaService {
	return &mediaService{storage: storage}
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

// Upload sniffs the real file type from content, rejects anything outside the
// allow-list, and stores the blob under a random key.
func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (string, string, error) {
	fileContent, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return "", "", fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return "", "", errors.New("unsupported file type")
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return "", "", fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}
	key = fmt.Sprintf("media/%d/%s.%s", userID, key, fileType.Extension)

	url, err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value)
	if err != nil {
		return "", "", fmt.Errorf("error uploading file: %w", err)
	}

	return url, fileType.MIME.Value, nil
}
