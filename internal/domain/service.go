// Package domain defines the business logic for the activity directory.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrActivityNotFound is returned when no activity matches the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the activity roster.
	ErrAlreadySignedUp = errors.New("student already signed up")
	// ErrActivityFull is returned when capacity enforcement is on and the roster is full.
	ErrActivityFull = errors.New("activity is full")
)

// AppendOptions tunes a single roster append.
type AppendOptions struct {
	EnforceCapacity bool
}

// Repository captures the storage operations behind the directory.
//
// AppendParticipant must perform the duplicate check, the optional capacity
// check and the append as one atomic step.
type Repository interface {
	List(ctx context.Context) ([]Activity, error)
	AppendParticipant(ctx context.Context, activityName, email string, opts AppendOptions) (Activity, error)
	Seed(ctx context.Context, activities []Activity) error
}

// EventPublisher receives notifications about roster changes.
type EventPublisher interface {
	ParticipantSignedUp(ctx context.Context, record SignupRecord) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// ParticipantSignedUp does nothing.
func (NoopPublisher) ParticipantSignedUp(context.Context, SignupRecord) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger used by the service.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPublisher sets the publisher notified after each signup.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithCapacityEnforcement makes Signup reject emails once an activity is full.
func WithCapacityEnforcement(enabled bool) Option {
	return func(s *Service) {
		s.enforceCapacity = enabled
	}
}

// WithClock overrides the time source used to stamp signups.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPublishTimeout bounds how long a signup waits on its event.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.publishTimeout = timeout
	}
}

// Service orchestrates directory reads and signups.
type Service struct {
	repo            Repository
	publisher       EventPublisher
	logger          *zap.Logger
	enforceCapacity bool
	publishTimeout  time.Duration
	now             func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		publisher:      NoopPublisher{},
		logger:         zap.NewNop(),
		publishTimeout: 2 * time.Second,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns the whole catalog in seed order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for _, a := range activities {
		recordRosterSize(a)
	}
	return activities, nil
}

// Signup appends email to the named activity's roster.
func (s *Service) Signup(ctx context.Context, activityName, email string) (SignupRecord, error) {
	activity, err := s.repo.AppendParticipant(ctx, activityName, email, AppendOptions{EnforceCapacity: s.enforceCapacity})
	if err != nil {
		recordSignupOutcome(err)
		if errors.Is(err, ErrActivityNotFound) || errors.Is(err, ErrAlreadySignedUp) || errors.Is(err, ErrActivityFull) {
			return SignupRecord{}, err
		}
		return SignupRecord{}, fmt.Errorf("append participant: %w", err)
	}
	recordSignupOutcome(nil)
	recordRosterSize(activity)

	record := SignupRecord{
		ActivityName:    activity.Name,
		Email:           email,
		RosterSize:      len(activity.Participants),
		MaxParticipants: activity.MaxParticipants,
		SignedUpAt:      s.now(),
	}

	if err := s.publish(ctx, record); err != nil {
		s.logger.Warn("signup event not published",
			zap.String("activity", record.ActivityName),
			zap.String("email", record.Email),
			zap.Error(err),
		)
	}

	s.logger.Info("participant signed up",
		zap.String("activity", record.ActivityName),
		zap.String("email", record.Email),
		zap.Int("roster_size", record.RosterSize),
	)
	return record, nil
}

func (s *Service) publish(ctx context.Context, record SignupRecord) error {
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}
	return s.publisher.ParticipantSignedUp(ctx, record)
}

// SeedCatalog loads the seed activities into the repository.
func (s *Service) SeedCatalog(ctx context.Context, activities []Activity) error {
	if err := s.repo.Seed(ctx, activities); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}
