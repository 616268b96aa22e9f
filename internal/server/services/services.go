// Package services contains the server-side business logic: accounts and
// profiles, the social graph, favorites, the post store and the feed
// aggregator built on top of them.
//
// Services take the *sql.DB and a RepositoryManager so that mirrored writes
// can bind both repositories to one transaction via dbx.WithTx.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/logging"
)

// mirrored wraps a failure of the second write of a mirrored pair.
func mirrored(err error) error {
	return fmt.Errorf("%w: %w", common.ErrorPartialMirror, err)
}

// storeError logs an unexpected store failure and returns it unchanged.
// Sentinel errors pass through without logging.
func storeError(ctx context.Context, log logging.Logger, msg string, err error, args ...any) error {
	if isSentinel(err) {
		return err
	}
	log.Error(ctx, msg, append(args, "err", err)...)
	return err
}

func isSentinel(err error) bool {
	for _, s := range []error{
		common.ErrorNotFound, common.ErrorAlreadyExists, common.ErrorForbidden,
		common.ErrorUnauthorized, common.ErrorValidation,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
