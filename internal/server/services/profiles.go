package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
)

// ProfileService resolves users by id and edits their profile.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	bcryptCost  int
}

func NewProfileService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger, bcryptCost int) *ProfileService {
	return &ProfileService{db: db, repomanager: rm, log: log.With("module", "profiles"), bcryptCost: bcryptCost}
}

func (s *ProfileService) Exists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.repomanager.Users(s.db).Exists(ctx, userID)
	if err != nil {
		return false, storeError(ctx, s.log, "exists lookup failed", err, "user_id", userID)
	}
	return ok, nil
}

// GetName never fails the caller: a missing user or a store error both
// come back as ok=false, the latter logged.
func (s *ProfileService) GetName(ctx context.Context, userID string) (string, bool) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "name lookup failed", "user_id", userID, "err", err)
		}
		return "", false
	}
	return u.Name, true
}

// Names resolves display names in one round trip. Unknown ids are absent
// from the result.
func (s *ProfileService) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names, err := s.repomanager.Users(s.db).Names(ctx, ids)
	if err != nil {
		return nil, storeError(ctx, s.log, "names lookup failed", err, "count", len(ids))
	}
	return names, nil
}

// Get returns the full user row; the password hash is cleared.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(ctx, s.log, "profile lookup failed", err, "user_id", userID)
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *ProfileService) UpdateName(ctx context.Context, userID, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db).UpdateName(ctx, userID, name); err != nil {
		return storeError(ctx, s.log, "update name failed", err, "user_id", userID)
	}
	return nil
}

// UpdateSecureInfo changes the email and/or the password. Each part is
// applied only when valid: an email must match the pattern and be free, a
// password must be repeated exactly and be long enough. Invalid parts are
// skipped silently. It reports whether anything was written.
func (s *ProfileService) UpdateSecureInfo(ctx context.Context, userID, email, newPassword, newPasswordCheck string) (bool, error) {
	var hash string
	if validNewPassword(newPassword, newPasswordCheck) {
		h, err := hashPassword(newPassword, s.bcryptCost)
		if err != nil {
			s.log.Error(ctx, "password hash failed", "err", err)
			return false, common.ErrorInternal
		}
		hash = h
	}

	changed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if email != "" && validEmail(email) {
			_, err := repo.GetByEmail(ctx, email)
			switch {
			case errors.Is(err, common.ErrorNotFound):
				// a concurrent taker surfaces as ErrorAlreadyExists and aborts the tx
				if err := repo.UpdateEmail(ctx, userID, email); err != nil {
					return fmt.Errorf("update email: %w", err)
				}
				changed = true
			case err != nil:
				return fmt.Errorf("email lookup: %w", err)
			}
		}

		if hash != "" {
			if err := repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
			changed = true
		}
		return nil
	})
	if err != nil {
		return false, storeError(ctx, s.log, "update secure info failed", err, "user_id", userID)
	}

	return changed, nil
}
