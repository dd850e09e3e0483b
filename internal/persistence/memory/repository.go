// Package memory keeps the activity directory in process memory.
package memory

import (
	"context"
	"sync"

	"example.com/extracurricular/internal/domain"
)

// Repository stores activities in memory. Its contents reset on every restart.
type Repository struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*domain.Activity
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{activities: make(map[string]*domain.Activity)}
}

// Seed implements domain.Repository. Activities already present are left untouched.
func (r *Repository) Seed(ctx context.Context, activities []domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range activities {
		if _, ok := r.activities[a.Name]; ok {
			continue
		}
		stored := a.Clone()
		r.activities[a.Name] = &stored
		r.order = append(r.order, a.Name)
	}
	return nil
}

// List implements domain.Repository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// AppendParticipant implements domain.Repository.
func (r *Repository) AppendParticipant(ctx context.Context, activityName, email string, opts domain.AppendOptions) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[activityName]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if activity.HasParticipant(email) {
		return domain.Activity{}, domain.ErrAlreadySignedUp
	}
	if opts.EnforceCapacity && activity.Full() {
		return domain.Activity{}, domain.ErrActivityFull
	}

	activity.Participants = append(activity.Participants, email)
	return activity.Clone(), nil
}
