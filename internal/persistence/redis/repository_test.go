package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"example.com/extracurricular/internal/domain"
)

func setupRepository(t *testing.T) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRepository(client, "test")
	require.NoError(t, repo.Seed(context.Background(), []domain.Activity{
		{Name: "Tennis", Description: "Competitive Tennis Match", Schedule: "Fridays 17:00-19:00", MaxParticipants: 8, Participants: []string{"alice@mergington.edu"}},
		{Name: "Philosophy Tea Salon", Description: "Philosophical Tea Salon Discussions", Schedule: "Thursdays 19:00-21:00", MaxParticipants: 2, Participants: []string{"frank@mergington.edu", "eve@mergington.edu"}},
	}))
	return repo, mr
}

func TestSeedAndList(t *testing.T) {
	repo, mr := setupRepository(t)

	activities, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Activity{
		{Name: "Tennis", Description: "Competitive Tennis Match", Schedule: "Fridays 17:00-19:00", MaxParticipants: 8, Participants: []string{"alice@mergington.edu"}},
		{Name: "Philosophy Tea Salon", Description: "Philosophical Tea Salon Discussions", Schedule: "Thursdays 19:00-21:00", MaxParticipants: 2, Participants: []string{"frank@mergington.edu", "eve@mergington.edu"}},
	}, activities)

	require.True(t, mr.Exists("test:activity:Tennis"))
	members, err := mr.Members("test:activity:Tennis:members")
	require.NoError(t, err)
	require.Equal(t, []string{"alice@mergington.edu"}, members)
}

func TestSeedIsIdempotent(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	_, err := repo.AppendParticipant(ctx, "Tennis", "bob@mergington.edu", domain.AppendOptions{})
	require.NoError(t, err)
	require.NoError(t, repo.Seed(ctx, []domain.Activity{{Name: "Tennis", Description: "changed", MaxParticipants: 1}}))

	activities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.Equal(t, "Competitive Tennis Match", activities[0].Description)
	require.Equal(t, []string{"alice@mergington.edu", "bob@mergington.edu"}, activities[0].Participants)
}

func TestAppendParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns updated roster", func(t *testing.T) {
		repo, _ := setupRepository(t)
		activity, err := repo.AppendParticipant(ctx, "Tennis", "bob@mergington.edu", domain.AppendOptions{})
		require.NoError(t, err)
		require.Equal(t, 8, activity.MaxParticipants)
		require.Equal(t, []string{"alice@mergington.edu", "bob@mergington.edu"}, activity.Participants)
	})

	t.Run("unknown activity", func(t *testing.T) {
		repo, mr := setupRepository(t)
		_, err := repo.AppendParticipant(ctx, "Fencing", "bob@mergington.edu", domain.AppendOptions{})
		require.ErrorIs(t, err, domain.ErrActivityNotFound)
		require.False(t, mr.Exists("test:activity:Fencing:roster"))
	})

	t.Run("duplicate leaves roster unchanged", func(t *testing.T) {
		repo, _ := setupRepository(t)
		_, err := repo.AppendParticipant(ctx, "Tennis", "alice@mergington.edu", domain.AppendOptions{})
		require.ErrorIs(t, err, domain.ErrAlreadySignedUp)

		activities, err := repo.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"alice@mergington.edu"}, activities[0].Participants)
	})

	t.Run("full roster accepted when advisory", func(t *testing.T) {
		repo, _ := setupRepository(t)
		activity, err := repo.AppendParticipant(ctx, "Philosophy Tea Salon", "grace@mergington.edu", domain.AppendOptions{})
		require.NoError(t, err)
		require.Len(t, activity.Participants, 3)
	})

	t.Run("full roster rejected when enforced", func(t *testing.T) {
		repo, _ := setupRepository(t)
		_, err := repo.AppendParticipant(ctx, "Philosophy Tea Salon", "grace@mergington.edu", domain.AppendOptions{EnforceCapacity: true})
		require.ErrorIs(t, err, domain.ErrActivityFull)
	})
}

func TestConcurrentDuplicateSignups(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AppendParticipant(ctx, "Tennis", "bob@mergington.edu", domain.AppendOptions{}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	activities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice@mergington.edu", "bob@mergington.edu"}, activities[0].Participants)
}
