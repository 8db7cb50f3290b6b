package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/transfer"
)

// BlobStorage is the slice of the storage service the post paths need.
type BlobStorage interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) (string, error)
	DeleteObjects(ctx context.Context, urls []string) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, userID int64, status string) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Clone(ctx context.Context, userID, postID int64) (int64, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db      *sql.DB
	posts   repository.PostRepository
	media   repository.MediaItemRepository
	usage   UsageService
	storage BlobStorage
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	media repository.MediaItemRepository,
	usage UsageService,
	storage BlobStorage,
) PostService {
	return &postService{
		db:      db,
		posts:   posts,
		media:   media,
		usage:   usage,
		storage: storage,
	}
}

var validPostKinds = map[string]struct{}{
	models.PostKindFeed:  {},
	models.PostKindStory: {},
	models.PostKindReels: {},
}

var knownPlatforms = map[string]struct{}{
	platform.Facebook:  {},
	platform.Instagram: {},
	platform.Youtube:   {},
	platform.Tiktok:    {},
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("at least one platform is required")
		slog.Info(err.Error())
		return 0, err
	}
	for _, name := range pc.Platforms {
		if _, ok := knownPlatforms[name]; !ok {
			err := fmt.Errorf("unknown platform %q", name)
			slog.Info(err.Error())
			return 0, err
		}
	}

	postKind := pc.PostKind
	if postKind == "" {
		postKind = models.PostKindFeed
	}
	if _, ok := validPostKinds[postKind]; !ok {
		err := fmt.Errorf("invalid post kind %q", postKind)
		slog.Info(err.Error())
		return 0, err
	}

	scheduledAt, err := time.Parse(time.RFC3339, pc.ScheduledAt)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Info(err.Error())
		return 0, err
	}

	if err := s.usage.CheckPostLimit(ctx, userID); err != nil {
		return 0, err
	}

	post := &models.Post{
		UserID:      userID,
		Content:     pc.Content,
		Platforms:   pq.StringArray(pc.Platforms),
		PostKind:    postKind,
		ScheduledAt: scheduledAt,
		Status:      models.PostStatusScheduled,
	}

	media := make([]*models.MediaItem, 0, len(pc.Media))
	for i, m := range pc.Media {
		if m.URL == "" {
			err := errors.New("media url cannot be empty")
			slog.Info(err.Error())
			return 0, err
		}
		media = append(media, &models.MediaItem{
			StorageURL:   m.URL,
			MimeType:     m.MimeType,
			DisplayOrder: i,
		})
	}

	postID, err := s.insertPost(ctx, post, media)
	if err != nil {
		return 0, err
	}

	if err := s.usage.RecordPostCreation(ctx, userID); err != nil {
		slog.Info(err.Error())
	}

	return postID, nil
}

// insertPost writes the post and its media rows in one transaction.
func (s *postService) insertPost(ctx context.Context, post *models.Post, media []*models.MediaItem) (postID int64, err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	postID, err = s.posts.Create(ctx, tx, post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	for _, item := range media {
		item.PostID = postID
		if _, err = s.media.Create(ctx, tx, item); err != nil {
			return 0, fmt.Errorf("error saving media item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, nil
}

func (s *postService) List(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	posts, err := s.posts.ListByUserID(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	return post, nil
}

// Clone re-creates a post as a fresh scheduled one, due immediately. It is
// the only sanctioned way to "republish": terminal posts never move back to
// scheduled.
func (s *postService) Clone(ctx context.Context, userID, postID int64) (int64, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return 0, err
	}

	source, err := s.posts.GetByID(ctx, postID)
	if err != nil || source == nil {
		return 0, errors.New("post doesn't exist")
	}

	if err := s.usage.CheckPostLimit(ctx, userID); err != nil {
		return 0, err
	}

	items, err := s.media.ListByPostID(ctx, postID)
	if err != nil {
		return 0, err
	}

	clone := &models.Post{
		UserID:      userID,
		Content:     source.Content,
		Platforms:   source.Platforms,
		PostKind:    source.PostKind,
		ScheduledAt: time.Now(),
		Status:      models.PostStatusScheduled,
	}

	media := make([]*models.MediaItem, 0, len(items))
	for _, item := range items {
		media = append(media, &models.MediaItem{
			StorageURL:   item.StorageURL,
			MimeType:     item.MimeType,
			DisplayOrder: item.DisplayOrder,
		})
	}

	cloneID, err := s.insertPost(ctx, clone, media)
	if err != nil {
		return 0, err
	}

	if err := s.usage.RecordPostCreation(ctx, userID); err != nil {
		slog.Info(err.Error())
	}

	return cloneID, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	items, err := s.media.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	// Blobs go first; a failed blob delete keeps the rows so the delete can
	// be retried instead of orphaning storage.
	if len(items) > 0 {
		urls := make([]string, 0, len(items))
		for _, item := range items {
			urls = append(urls, item.StorageURL)
		}
		if err := s.storage.DeleteObjects(ctx, urls); err != nil {
			return fmt.Errorf("error deleting media: %w", err)
		}
		if err := s.media.RemoveByPostID(ctx, postID); err != nil {
			return fmt.Errorf("error removing media items: %w", err)
		}
	}

	if err := s.posts.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) checkOwnership(ctx context.Context, postID, userID int64) error {
	if userID == 0 || postID == 0 {
		err := errors.New("invalid post or user id")
		slog.Info(err.Error())
		return err
	}

	isOwner, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isOwner {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
