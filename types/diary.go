package types

import (
	"encoding/json"
	"time"
)

// DiaryTimeLayout is the wire format of Diary.CreatedAt: UTC, second
// precision, literal Z suffix.
const DiaryTimeLayout = "2006-01-02T15:04:05Z"

// Diary is a single mood diary entry. The four text fields follow the
// five-step journaling flow; MoodLevel is the fifth step.
type Diary struct {
	// ID is the unique identifier of the entry.
	ID int `json:"id" db:"id"`

	// UserID identifies the owning user. It is not part of the API payload.
	UserID int `json:"-" db:"user_id"`

	// Event records what happened.
	Event string `json:"event" db:"event"`

	// EmotionDesc describes the emotion that was felt.
	EmotionDesc string `json:"emotion_desc" db:"emotion_desc"`

	// EmotionMeaning explores what the emotion means.
	EmotionMeaning string `json:"emotion_meaning" db:"emotion_meaning"`

	// SelfTalk is what the writer tells themselves about it.
	SelfTalk string `json:"self_talk" db:"self_talk"`

	// MoodLevel is the mood rating. No range is enforced.
	MoodLevel int `json:"mood_level" db:"mood_level"`

	// CreatedAt is supplied by the client or defaults to the creation time.
	// It never changes after creation.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MarshalJSON renders CreatedAt in DiaryTimeLayout.
func (d Diary) MarshalJSON() ([]byte, error) {
	type diaryJSON struct {
		ID             int    `json:"id"`
		Event          string `json:"event"`
		EmotionDesc    string `json:"emotion_desc"`
		EmotionMeaning string `json:"emotion_meaning"`
		SelfTalk       string `json:"self_talk"`
		MoodLevel      int    `json:"mood_level"`
		CreatedAt      string `json:"created_at"`
	}
	return json.Marshal(diaryJSON{
		ID:             d.ID,
		Event:          d.Event,
		EmotionDesc:    d.EmotionDesc,
		EmotionMeaning: d.EmotionMeaning,
		SelfTalk:       d.SelfTalk,
		MoodLevel:      d.MoodLevel,
		CreatedAt:      d.CreatedAt.UTC().Format(DiaryTimeLayout),
	})
}

// DiaryInput is the create payload. Pointer fields distinguish an absent
// key from a zero value.
type DiaryInput struct {
	Event          *string `json:"event"`
	EmotionDesc    *string `json:"emotion_desc"`
	EmotionMeaning *string `json:"emotion_meaning"`
	SelfTalk       *string `json:"self_talk"`
	MoodLevel      *int    `json:"mood_level"`
	CreatedAt      *string `json:"created_at"`
}

// DiaryPatch is the partial update payload. Nil fields are left unchanged.
type DiaryPatch struct {
	Event          *string `json:"event"`
	EmotionDesc    *string `json:"emotion_desc"`
	EmotionMeaning *string `json:"emotion_meaning"`
	SelfTalk       *string `json:"self_talk"`
	MoodLevel      *int    `json:"mood_level"`
}

// Apply overwrites the fields of d that are set in p.
func (p DiaryPatch) Apply(d *Diary) {
	if p.Event != nil {
		d.Event = *p.Event
	}
	if p.EmotionDesc != nil {
		d.EmotionDesc = *p.EmotionDesc
	}
	if p.EmotionMeaning != nil {
		d.EmotionMeaning = *p.EmotionMeaning
	}
	if p.SelfTalk != nil {
		d.SelfTalk = *p.SelfTalk
	}
	if p.MoodLevel != nil {
		d.MoodLevel = *p.MoodLevel
	}
}

// DiaryEventType names a diary lifecycle event.
type DiaryEventType string

const (
	DiaryCreated DiaryEventType = "diary.created"
	DiaryUpdated DiaryEventType = "diary.updated"
)

// DiaryEvent is published to the message broker after a diary write.
type DiaryEvent struct {
	Type       DiaryEventType `json:"type"`
	DiaryID    int            `json:"diary_id"`
	UserID     int            `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}
