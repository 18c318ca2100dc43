package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/pitch-review/internal/models"
)

var (
	// ErrSessionNotFound indicates the session does not exist or has expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists indicates a session with the same id is already stored.
	ErrSessionExists = errors.New("session already exists")
	// ErrAudioNotFound indicates no recording is stored for the session.
	ErrAudioNotFound = errors.New("audio not found")
)

// SessionMutator edits a session inside an atomic update. Returning an error aborts the write.
type SessionMutator func(session *models.Session) error

// SessionRepository stores review sessions and their selected recordings.
type SessionRepository interface {
	Create(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Update(ctx context.Context, id string, mutate SessionMutator) (models.Session, error)
	Delete(ctx context.Context, id string) error
	PutAudio(ctx context.Context, id string, data []byte) error
	GetAudio(ctx context.Context, id string) ([]byte, error)
}

type memorySessionEntry struct {
	session   models.Session
	audio     []byte
	expiresAt time.Time
}

type memorySessionRepository struct {
	mu      sync.Mutex
	entries map[string]*memorySessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionRepository keeps sessions in process memory. Used when no Redis is configured.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySessionRepository{
		entries: make(map[string]*memorySessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(session.ID); ok {
		return ErrSessionExists
	}
	r.entries[session.ID] = &memorySessionEntry{session: session, expiresAt: r.expiry()}
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return entry.session, nil
}

func (r *memorySessionRepository) Update(_ context.Context, id string, mutate SessionMutator) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}

	draft := entry.session
	if err := mutate(&draft); err != nil {
		return models.Session{}, err
	}
	draft.UpdatedAt = r.now().UTC()
	entry.session = draft
	entry.expiresAt = r.expiry()
	return draft, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

func (r *memorySessionRepository) PutAudio(_ context.Context, id string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	entry.audio = append([]byte(nil), data...)
	return nil
}

func (r *memorySessionRepository) GetAudio(_ context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if entry.audio == nil {
		return nil, ErrAudioNotFound
	}
	return append([]byte(nil), entry.audio...), nil
}

// lookup must be called with r.mu held.
func (r *memorySessionRepository) lookup(id string) (*memorySessionEntry, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		delete(r.entries, id)
		return nil, false
	}
	return entry, true
}

func (r *memorySessionRepository) expiry() time.Time {
	return r.now().Add(r.ttl)
}
