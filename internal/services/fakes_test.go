package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/mooddiary/apiserver/internal/store"
	"github.com/mooddiary/apiserver/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]types.User

	getErr    error
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return types.User{}, f.getErr
	}
	user, ok := f.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	if _, ok := f.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicate
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.Username] = user
	return user, nil
}

func (f *fakeUserRepo) count(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return 1
	}
	return 0
}

type fakeDiaryRepo struct {
	mu      sync.Mutex
	nextID  int
	diaries map[int]types.Diary
	users   map[int]bool

	creates int
	updates int
	listErr error
}

func newFakeDiaryRepo(userIDs ...int) *fakeDiaryRepo {
	users := make(map[int]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return &fakeDiaryRepo{diaries: make(map[int]types.Diary), users: users}
}

func (f *fakeDiaryRepo) ListByUser(_ context.Context, userID int) ([]types.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.Diary, 0)
	for _, d := range f.diaries {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeDiaryRepo) Get(_ context.Context, id int) (types.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.diaries[id]
	if !ok {
		return types.Diary{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeDiaryRepo) Create(_ context.Context, diary types.Diary) (types.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.users[diary.UserID] {
		return types.Diary{}, store.ErrInvalidReference
	}
	f.creates++
	f.nextID++
	diary.ID = f.nextID
	f.diaries[diary.ID] = diary
	return diary, nil
}

func (f *fakeDiaryRepo) Update(_ context.Context, diary types.Diary) (types.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.diaries[diary.ID]
	if !ok || stored.UserID != diary.UserID {
		return types.Diary{}, store.ErrNotFound
	}
	f.updates++
	stored.Event = diary.Event
	stored.EmotionDesc = diary.EmotionDesc
	stored.EmotionMeaning = diary.EmotionMeaning
	stored.SelfTalk = diary.SelfTalk
	stored.MoodLevel = diary.MoodLevel
	f.diaries[diary.ID] = stored
	return stored, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []types.DiaryEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event types.DiaryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeTokens struct {
	err error
}

func (f fakeTokens) Issue(userID int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + strconv.Itoa(userID), nil
}

type fakeObjectStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return err
	}
	if n != size {
		return errors.New("size mismatch")
	}
	f.objects[key] = buf.Bytes()
	f.types[key] = contentType
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func fakeUser(username string) types.User {
	return types.User{Username: username, PasswordHash: "hash"}
}
