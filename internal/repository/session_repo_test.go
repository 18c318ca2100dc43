package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/models"
)

func sessionRepositories(t *testing.T) map[string]SessionRepository {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]SessionRepository{
		"memory": NewMemorySessionRepository(time.Hour),
		"redis":  NewRedisSessionRepository(client, "test", time.Hour),
	}
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := models.Session{ID: "s-1", Mode: models.SessionModeFreeform, CreatedAt: time.Now().UTC()}

			require.NoError(t, repo.Create(ctx, session))
			require.ErrorIs(t, repo.Create(ctx, session), ErrSessionExists)

			loaded, err := repo.Get(ctx, "s-1")
			require.NoError(t, err)
			require.Equal(t, models.SessionModeFreeform, loaded.Mode)

			updated, err := repo.Update(ctx, "s-1", func(s *models.Session) error {
				s.Generation++
				s.Upload.Submitting = true
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, uint64(1), updated.Generation)
			require.True(t, updated.Upload.Submitting)
			require.False(t, updated.UpdatedAt.IsZero())

			require.NoError(t, repo.Delete(ctx, "s-1"))
			_, err = repo.Get(ctx, "s-1")
			require.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestSessionRepositoryAbortedUpdateKeepsState(t *testing.T) {
	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, models.Session{ID: "s-2"}))

			abort := errors.New("abort")
			_, err := repo.Update(ctx, "s-2", func(s *models.Session) error {
				s.LastAlert = "should not persist"
				return abort
			})
			require.ErrorIs(t, err, abort)

			loaded, err := repo.Get(ctx, "s-2")
			require.NoError(t, err)
			require.Empty(t, loaded.LastAlert)

			_, err = repo.Update(ctx, "missing", func(*models.Session) error { return nil })
			require.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestSessionRepositoryAudio(t *testing.T) {
	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.ErrorIs(t, repo.PutAudio(ctx, "nope", []byte("x")), ErrSessionNotFound)

			require.NoError(t, repo.Create(ctx, models.Session{ID: "s-3"}))
			_, err := repo.GetAudio(ctx, "s-3")
			require.ErrorIs(t, err, ErrAudioNotFound)

			require.NoError(t, repo.PutAudio(ctx, "s-3", []byte("RIFF")))
			data, err := repo.GetAudio(ctx, "s-3")
			require.NoError(t, err)
			require.Equal(t, []byte("RIFF"), data)
		})
	}
}

func TestSessionRepositoryConcurrentUpdates(t *testing.T) {
	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, models.Session{ID: "s-4"}))

			const workers = 4
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.Update(ctx, "s-4", func(s *models.Session) error {
						s.Generation++
						return nil
					})
					require.NoError(t, err)
				}()
			}
			wg.Wait()

			loaded, err := repo.Get(ctx, "s-4")
			require.NoError(t, err)
			require.Equal(t, uint64(workers), loaded.Generation)
		})
	}
}

func TestMemorySessionRepositoryExpires(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Create(context.Background(), models.Session{ID: "old"}))

	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := repo.Get(context.Background(), "old")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
