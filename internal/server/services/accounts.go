package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/auth"
	"github.com/dmitrijs2005/feedhub/internal/server/config"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
)

// AccountService registers users, checks credentials and mints access
// tokens.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger

	jwtSecret     []byte
	tokenValidity time.Duration
	bcryptCost    int

	// dummyHash is compared against when the email is unknown so both
	// paths cost one bcrypt comparison.
	dummyHash string
}

func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger, cfg *config.Config) *AccountService {
	s := &AccountService{
		db:            db,
		repomanager:   rm,
		log:           log.With("module", "accounts"),
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		bcryptCost:    cfg.BcryptCost,
	}
	if h, err := hashPassword("feedhub-dummy-password", cfg.BcryptCost); err == nil {
		s.dummyHash = h
	}
	return s
}

// Register validates the input and creates the account. An empty name
// defaults to the local part of the email.
func (s *AccountService) Register(ctx context.Context, email, password, passwordCheck, name string) (*models.User, error) {
	if password != passwordCheck {
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", common.ErrorValidation)
	}
	if utf8.RuneCountInString(password) < passwordMinLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, passwordMinLen)
	}
	if len(password) > passwordMaxBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, passwordMaxBytes)
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, storeError(ctx, s.log, "email lookup failed", err)
	}

	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		s.log.Error(ctx, "password hash failed", "err", err)
		return nil, common.ErrorInternal
	}

	u, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash, Name: name})
	if err != nil {
		return nil, storeError(ctx, s.log, "create user failed", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	u.PasswordHash = ""
	return u, nil
}

// Authenticate is the credential predicate: it returns the identity for a
// matching email/password pair and common.ErrorUnauthorized otherwise.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = comparePassword(s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "credential lookup failed", "err", err)
		return nil, common.ErrorInternal
	}

	if err := comparePassword(u.PasswordHash, password); err != nil {
		return nil, common.ErrorUnauthorized
	}

	return &models.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}

func (s *AccountService) IssueToken(id models.Identity) (string, error) {
	tok, err := auth.GenerateToken(id, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", common.ErrorInternal
	}
	return tok, nil
}

// Login authenticates and mints a token in one step.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	id, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	tok, err := s.IssueToken(*id)
	if err != nil {
		return "", nil, err
	}
	return tok, id, nil
}

// VerifyToken returns the identity carried by an access token.
func (s *AccountService) VerifyToken(token string) (*models.Identity, error) {
	return auth.ParseToken(token, s.jwtSecret)
}
