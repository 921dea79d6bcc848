package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"checkinBoard/internal/clock"
	"checkinBoard/internal/dto"
	"checkinBoard/internal/model"
	"checkinBoard/internal/queue"
	"checkinBoard/internal/repo"
)

var (
	ErrInvalidEmail       = errors.New("email is outside the institutional domain")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSyncConnection     = errors.New("external sync connection failed")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}

type Service interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, req dto.UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListAttendees(ctx context.Context) ([]model.Attendee, error)
	GetAttendee(ctx context.Context, id string) (*model.Attendee, error)
	GetAttendeeByEmail(ctx context.Context, email string) (*model.Attendee, error)
	GetOrCreateAttendee(ctx context.Context, email, fullName string) (*model.Attendee, error)
	// ExportAttendeesCSV writes the attendee table and returns the download
	// file name, dated by the service clock.
	ExportAttendeesCSV(ctx context.Context, w io.Writer) (string, error)

	CheckIn(ctx context.Context, req dto.CheckInRequest) (*model.CheckInResult, error)
	ListAttendance(ctx context.Context) ([]dto.AttendanceResponse, error)
	ListEventAttendance(ctx context.Context, eventID string) ([]dto.AttendanceResponse, error)

	Stats(ctx context.Context) (*model.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]model.Attendee, error)

	GetSyncSettings(ctx context.Context) (dto.SyncSettingsResponse, error)
	SaveSyncSettings(ctx context.Context, req dto.SaveSyncSettingsRequest) error
	ClearSyncSettings(ctx context.Context) error
	TestSyncConnection(ctx context.Context, req dto.SaveSyncSettingsRequest) (string, error)

	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	ValidateToken(token string) error
}

// DatabaseInspector checks external sync credentials.
type DatabaseInspector interface {
	RetrieveDatabaseTitle(ctx context.Context, apiKey, databaseID string) (string, error)
}

type Config struct {
	// EmailDomain is the required, case-sensitive suffix of check-in emails.
	EmailDomain    string
	PublishTimeout time.Duration
	SyncTimeout    time.Duration

	AdminUsername string
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration
}

const (
	DefaultEmailDomain      = "@caltech.edu"
	DefaultLeaderboardLimit = 10
)

type service struct {
	repo      repo.Repository
	log       *zerolog.Logger
	queue     queue.Queue
	inspector DatabaseInspector
	clk       clock.Clock
	cfg       Config
}

// NewService wires the business logic. q and inspector may be nil, which
// disables external sync.
func NewService(repository repo.Repository, logger *zerolog.Logger, q queue.Queue, inspector DatabaseInspector, clk clock.Clock, cfg Config) Service {
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = DefaultEmailDomain
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 10 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &service{
		repo:      repository,
		log:       logger,
		queue:     q,
		inspector: inspector,
		clk:       clk,
		cfg:       cfg,
	}
}
