// internal/auth/service.go
// Admin checks for the bot and bearer tokens for the admin HTTP API

package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/common/utils"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrNotAdmin              = errors.New("not an admin")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenRevoked          = errors.New("token revoked")
	ErrBootstrapAdmin        = errors.New("bootstrap admins are managed by configuration")
	ErrRevocationUnavailable = errors.New("token revocation requires redis")
)

// Config holds service configuration
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
	// BootstrapAdmins are admins regardless of the users table
	BootstrapAdmins []int64
}

type Service interface {
	IsAdmin(ctx context.Context, tgID int64) bool
	Admins(ctx context.Context) ([]*Admin, error)
	SetAdmin(ctx context.Context, tgID int64, isAdmin bool) error

	IssueToken(ctx context.Context, tgID int64, username string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	RevokeToken(ctx context.Context, claims *utils.JWTClaims) error
}

type service struct {
	repo      Repository
	blacklist Blacklist
	config    Config
	bootstrap map[int64]bool
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo Repository, blacklist Blacklist, config Config) Service {
	bootstrap := make(map[int64]bool, len(config.BootstrapAdmins))
	for _, id := range config.BootstrapAdmins {
		bootstrap[id] = true
	}
	return &service{
		repo:      repo,
		blacklist: blacklist,
		config:    config,
		bootstrap: bootstrap,
		now:       time.Now,
		logger:    logging.Component("auth"),
	}
}

// IsAdmin fails closed when the database cannot be read
func (s *service) IsAdmin(ctx context.Context, tgID int64) bool {
	if s.bootstrap[tgID] {
		return true
	}
	ok, err := s.repo.IsAdmin(ctx, tgID)
	if err != nil {
		s.logger.Error().Err(err).Int64("tg_id", tgID).Msg("admin check failed")
		return false
	}
	return ok
}

// Admins merges database admins with bootstrap ids, sorted by Telegram id
func (s *service) Admins(ctx context.Context) ([]*Admin, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(admins))
	for _, a := range admins {
		seen[a.TgID] = true
		a.Bootstrap = s.bootstrap[a.TgID]
	}
	for id := range s.bootstrap {
		if !seen[id] {
			admins = append(admins, &Admin{TgID: id, Bootstrap: true})
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].TgID < admins[j].TgID })
	return admins, nil
}

func (s *service) SetAdmin(ctx context.Context, tgID int64, isAdmin bool) error {
	if s.bootstrap[tgID] && !isAdmin {
		return ErrBootstrapAdmin
	}
	if err := s.repo.SetAdmin(ctx, tgID, isAdmin); err != nil {
		return err
	}
	s.logger.Info().Int64("tg_id", tgID).Bool("is_admin", isAdmin).Msg("admin flag changed")
	return nil
}

func (s *service) IssueToken(ctx context.Context, tgID int64, username string) (*TokenResponse, error) {
	if !s.IsAdmin(ctx, tgID) {
		return nil, ErrNotAdmin
	}
	token, err := utils.GenerateJWT(tgID, username, RoleAdmin, s.config.JWTSecret, s.config.TokenExpiry)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("tg_id", tgID).Msg("admin token issued")
	return &TokenResponse{Token: token, ExpiresAt: s.now().Add(s.config.TokenExpiry)}, nil
}

// ValidateToken rejects tokens of demoted admins even before they expire
func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("token blacklist unavailable")
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if !s.IsAdmin(ctx, claims.TgID) {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

func (s *service) RevokeToken(ctx context.Context, claims *utils.JWTClaims) error {
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	return s.blacklist.Revoke(ctx, claims.ID, ttl)
}
