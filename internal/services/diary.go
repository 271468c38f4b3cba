package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mooddiary/apiserver/internal/store"
	"github.com/mooddiary/apiserver/types"
)

// DiaryRepository defines persistence operations for diaries.
type DiaryRepository interface {
	ListByUser(ctx context.Context, userID int) ([]types.Diary, error)
	Get(ctx context.Context, id int) (types.Diary, error)
	Create(ctx context.Context, diary types.Diary) (types.Diary, error)
	Update(ctx context.Context, diary types.Diary) (types.Diary, error)
}

// EventPublisher delivers diary lifecycle events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event types.DiaryEvent) error
}

// DiaryService encapsulates the ownership-checked diary use-cases.
type DiaryService struct {
	repo   DiaryRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewDiaryService constructs a DiaryService. events may be nil.
func NewDiaryService(repo DiaryRepository, events EventPublisher, logger *slog.Logger) *DiaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiaryService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the user's diaries, newest first.
func (s *DiaryService) List(ctx context.Context, userID int) ([]types.Diary, error) {
	diaries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	return diaries, nil
}

// Create validates in and stores a new diary owned by userID. Nothing is
// written when a required field is missing or created_at is malformed.
func (s *DiaryService) Create(ctx context.Context, userID int, in types.DiaryInput) (types.Diary, error) {
	switch {
	case in.Event == nil:
		return types.Diary{}, validationErr("event", "event is required")
	case in.EmotionDesc == nil:
		return types.Diary{}, validationErr("emotion_desc", "emotion_desc is required")
	case in.EmotionMeaning == nil:
		return types.Diary{}, validationErr("emotion_meaning", "emotion_meaning is required")
	case in.SelfTalk == nil:
		return types.Diary{}, validationErr("self_talk", "self_talk is required")
	case in.MoodLevel == nil:
		return types.Diary{}, validationErr("mood_level", "mood_level is required")
	}

	createdAt := s.now().UTC()
	if in.CreatedAt != nil && *in.CreatedAt != "" {
		parsed, err := ParseCreatedAt(*in.CreatedAt)
		if err != nil {
			return types.Diary{}, validationErr("created_at", "created_at must be an ISO-8601 timestamp")
		}
		createdAt = parsed
	}

	created, err := s.repo.Create(ctx, types.Diary{
		UserID:         userID,
		Event:          *in.Event,
		EmotionDesc:    *in.EmotionDesc,
		EmotionMeaning: *in.EmotionMeaning,
		SelfTalk:       *in.SelfTalk,
		MoodLevel:      *in.MoodLevel,
		CreatedAt:      createdAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return types.Diary{}, ErrUnauthorized
		}
		return types.Diary{}, fmt.Errorf("create diary: %w", err)
	}

	s.publish(ctx, types.DiaryCreated, created)
	return created, nil
}

// GetOwned loads a diary and checks that userID owns it.
func (s *DiaryService) GetOwned(ctx context.Context, userID, diaryID int) (types.Diary, error) {
	diary, err := s.repo.Get(ctx, diaryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Diary{}, ErrNotFound
		}
		return types.Diary{}, fmt.Errorf("load diary: %w", err)
	}
	if diary.UserID != userID {
		return types.Diary{}, ErrForbidden
	}
	return diary, nil
}

// Update applies patch to the diary if userID owns it. user_id and
// created_at are never modified.
func (s *DiaryService) Update(ctx context.Context, userID, diaryID int, patch types.DiaryPatch) (types.Diary, error) {
	diary, err := s.GetOwned(ctx, userID, diaryID)
	if err != nil {
		return types.Diary{}, err
	}

	patch.Apply(&diary)

	updated, err := s.repo.Update(ctx, diary)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Diary{}, ErrNotFound
		}
		return types.Diary{}, fmt.Errorf("update diary: %w", err)
	}

	s.publish(ctx, types.DiaryUpdated, updated)
	return updated, nil
}

// publish is best effort: the write has already committed.
func (s *DiaryService) publish(ctx context.Context, kind types.DiaryEventType, diary types.Diary) {
	if s.events == nil {
		return
	}
	event := types.DiaryEvent{
		Type:       kind,
		DiaryID:    diary.ID,
		UserID:     diary.UserID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish diary event",
			"type", string(kind),
			"diary_id", diary.ID,
			"error", err,
		)
	}
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseCreatedAt parses an ISO-8601 timestamp. A trailing Z is read as
// +00:00 and values without an offset are taken as UTC. The result is in UTC.
func ParseCreatedAt(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}
