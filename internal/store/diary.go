package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mooddiary/apiserver/types"
)

// DiaryRepository handles persistence for diaries.
type DiaryRepository struct {
	db *sqlx.DB
}

func NewDiaryRepository(db *sql.DB) *DiaryRepository {
	return &DiaryRepository{db: sqlx.NewDb(db, "postgres")}
}

// ListByUser returns the user's diaries, newest first. Entries sharing a
// timestamp are ordered by descending id.
func (r *DiaryRepository) ListByUser(ctx context.Context, userID int) ([]types.Diary, error) {
	const query = `
		SELECT id, user_id, event, emotion_desc, emotion_meaning, self_talk, mood_level, created_at
		FROM diaries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	diaries := make([]types.Diary, 0)
	if err := r.db.SelectContext(ctx, &diaries, query, userID); err != nil {
		return nil, err
	}
	return diaries, nil
}

func (r *DiaryRepository) Get(ctx context.Context, id int) (types.Diary, error) {
	const query = `
		SELECT id, user_id, event, emotion_desc, emotion_meaning, self_talk, mood_level, created_at
		FROM diaries
		WHERE id = $1`
	var diary types.Diary
	if err := r.db.GetContext(ctx, &diary, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Diary{}, ErrNotFound
		}
		return types.Diary{}, err
	}
	return diary, nil
}

// Create inserts diary and returns it with its assigned ID. An owner that
// does not exist yields ErrInvalidReference.
func (r *DiaryRepository) Create(ctx context.Context, diary types.Diary) (types.Diary, error) {
	const query = `
		INSERT INTO diaries (user_id, event, emotion_desc, emotion_meaning, self_talk, mood_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		diary.UserID,
		diary.Event,
		diary.EmotionDesc,
		diary.EmotionMeaning,
		diary.SelfTalk,
		diary.MoodLevel,
		diary.CreatedAt,
	).Scan(&diary.ID); err != nil {
		return types.Diary{}, translate(err)
	}
	return diary, nil
}

// Update writes the editable fields of diary. user_id and created_at are
// never touched; the owner is part of the predicate.
func (r *DiaryRepository) Update(ctx context.Context, diary types.Diary) (types.Diary, error) {
	const query = `
		UPDATE diaries
		SET event = $1,
			emotion_desc = $2,
			emotion_meaning = $3,
			self_talk = $4,
			mood_level = $5
		WHERE id = $6 AND user_id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		diary.Event,
		diary.EmotionDesc,
		diary.EmotionMeaning,
		diary.SelfTalk,
		diary.MoodLevel,
		diary.ID,
		diary.UserID,
	)
	if err != nil {
		return types.Diary{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Diary{}, err
	}
	if affected == 0 {
		return types.Diary{}, ErrNotFound
	}
	return diary, nil
}
