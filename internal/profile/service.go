// internal/profile/service.go

package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/common/utils"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrUnknownOption    = errors.New("unknown option")
	ErrUnknownCategory  = errors.New("unknown option category")
	ErrAgeNotNumber     = errors.New("age must be a number")
	ErrAgeOutOfRange    = errors.New("age out of range")
	ErrNoInterests      = errors.New("at least one interest is required")
	ErrTooManyInterests = errors.New("too many interests selected")
	ErrDraftIncomplete  = errors.New("questionnaire is incomplete")
)

// Settings bound questionnaire input
type Settings struct {
	MinAge       int
	MaxAge       int
	MaxPhotos    int
	MaxInterests int // 0 means unlimited
}

// DefaultSettings matches the bot's production limits
func DefaultSettings() Settings {
	return Settings{MinAge: 18, MaxAge: 60, MaxPhotos: 10, MaxInterests: 20}
}

// Service defines the profile service interface
type Service interface {
	// Registration
	Register(ctx context.Context, tgID int64, firstName, username string, photoIDs []string) error
	HasProfile(ctx context.Context, tgID int64) (bool, error)

	// Lookup
	GetUser(ctx context.Context, tgID int64) (*User, error)
	GetProfile(ctx context.Context, tgID int64) (*Profile, error)
	FindByUsername(ctx context.Context, username string) (*Profile, error)

	// Questionnaire
	Options(ctx context.Context, category Category) ([]Option, error)
	ParseAge(input string) (int, error)
	StartDraft(ctx context.Context, tgID int64) (Draft, error)
	SaveProfile(ctx context.Context, tgID int64, draft *Draft) error
	UpdateInterests(ctx context.Context, tgID int64, interests []string) error
	MaxInterests() int

	Points(ctx context.Context, tgID int64) (int, error)
}

type service struct {
	repo     Repository
	settings Settings
	logger   zerolog.Logger
}

// NewService creates a new profile service
func NewService(repo Repository, settings Settings) Service {
	return &service{repo: repo, settings: settings, logger: logging.Component("profile")}
}

// Register creates or refreshes the user row, keeping photos only when some were fetched
func (s *service) Register(ctx context.Context, tgID int64, firstName, username string, photoIDs []string) error {
	if err := s.repo.UpsertUser(ctx, tgID, firstName, username); err != nil {
		return err
	}
	if len(photoIDs) == 0 {
		return nil
	}
	if len(photoIDs) > s.settings.MaxPhotos && s.settings.MaxPhotos > 0 {
		photoIDs = photoIDs[:s.settings.MaxPhotos]
	}
	if err := s.repo.SavePhotos(ctx, tgID, photoIDs); err != nil {
		return err
	}

	s.logger.Debug().
		Int64("tg_id", tgID).
		Int("photos", len(photoIDs)).
		Msg("user registered")
	return nil
}

func (s *service) HasProfile(ctx context.Context, tgID int64) (bool, error) {
	u, err := s.repo.GetUser(ctx, tgID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Year != nil, nil
}

func (s *service) GetUser(ctx context.Context, tgID int64) (*User, error) {
	return s.repo.GetUser(ctx, tgID)
}

func (s *service) GetProfile(ctx context.Context, tgID int64) (*Profile, error) {
	p, err := s.repo.GetProfile(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if !p.Complete() {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *service) FindByUsername(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, ErrUserNotFound
	}
	p, err := s.repo.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !p.Complete() {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *service) Options(ctx context.Context, category Category) ([]Option, error) {
	return s.repo.ListOptions(ctx, category)
}

// ParseAge accepts only digits within the configured bounds
func (s *service) ParseAge(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, ErrAgeNotNumber
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, ErrAgeNotNumber
		}
	}
	age, err := strconv.Atoi(input)
	if err != nil {
		return 0, ErrAgeNotNumber
	}
	if age < s.settings.MinAge || age > s.settings.MaxAge {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrAgeOutOfRange, age, s.settings.MinAge, s.settings.MaxAge)
	}
	return age, nil
}

// StartDraft returns the saved answers or an empty draft for new users
func (s *service) StartDraft(ctx context.Context, tgID int64) (Draft, error) {
	p, err := s.repo.GetProfile(ctx, tgID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Draft{}, nil
		}
		return Draft{}, err
	}
	return DraftFromProfile(p), nil
}

func (s *service) SaveProfile(ctx context.Context, tgID int64, draft *Draft) error {
	if err := s.checkInterests(draft.Interests); err != nil {
		return err
	}
	if draft.Age < s.settings.MinAge || draft.Age > s.settings.MaxAge {
		return fmt.Errorf("%w: %d", ErrAgeOutOfRange, draft.Age)
	}
	if err := utils.ValidateStruct(draft); err != nil {
		return fmt.Errorf("%w: %v", ErrDraftIncomplete, err)
	}

	if err := s.repo.SaveProfile(ctx, tgID, draft); err != nil {
		return err
	}

	s.logger.Info().
		Int64("tg_id", tgID).
		Int("interests", len(draft.Interests)).
		Msg("profile saved")
	return nil
}

func (s *service) UpdateInterests(ctx context.Context, tgID int64, interests []string) error {
	if err := s.checkInterests(interests); err != nil {
		return err
	}
	return s.repo.ReplaceInterests(ctx, tgID, interests)
}

// MaxInterests is the selection limit, 0 when unlimited
func (s *service) MaxInterests() int {
	return s.settings.MaxInterests
}

func (s *service) checkInterests(interests []string) error {
	if len(interests) == 0 {
		return ErrNoInterests
	}
	if s.settings.MaxInterests > 0 && len(interests) > s.settings.MaxInterests {
		return fmt.Errorf("%w: %d > %d", ErrTooManyInterests, len(interests), s.settings.MaxInterests)
	}
	return nil
}

func (s *service) Points(ctx context.Context, tgID int64) (int, error) {
	u, err := s.repo.GetUser(ctx, tgID)
	if err != nil {
		return 0, err
	}
	return u.Points, nil
}
