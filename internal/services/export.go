package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mooddiary/apiserver/internal/store"
)

// ObjectStore is the subset of object storage used for exports.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportResult describes a completed export.
type ExportResult struct {
	Key     string
	Entries int
}

// ExportService snapshots a user's diaries into object storage.
type ExportService struct {
	users   UserRepository
	diaries DiaryRepository
	objects ObjectStore
	now     func() time.Time
}

func NewExportService(users UserRepository, diaries DiaryRepository, objects ObjectStore) *ExportService {
	return &ExportService{
		users:   users,
		diaries: diaries,
		objects: objects,
		now:     time.Now,
	}
}

// Export writes the user's diaries, newest first, as a JSON array and
// returns the object key.
func (s *ExportService) Export(ctx context.Context, username string) (ExportResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ExportResult{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return ExportResult{}, fmt.Errorf("load user: %w", err)
	}

	diaries, err := s.diaries.ListByUser(ctx, user.ID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list diaries: %w", err)
	}

	data, err := json.Marshal(diaries)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode diaries: %w", err)
	}

	key := fmt.Sprintf("exports/%d/%s-%s.json", user.ID, s.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return ExportResult{}, fmt.Errorf("upload export: %w", err)
	}

	return ExportResult{Key: key, Entries: len(diaries)}, nil
}
