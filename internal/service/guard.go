package service

import (
	"context"
	"errors"
	"time"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

// requireActiveUser re-reads the account's sanction state from storage at
// request time, so a sanction applied mid-session takes effect on the next
// request. needPhone additionally enforces the verified-phone gate.
func requireActiveUser(ctx context.Context, s store.UserStore, userID string, needPhone bool) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewUnauthorizedError("Account no longer exists")
		}
		return models.NewInternalError(err)
	}
	now := time.Now().UTC()
	if user.IsBanned(now) {
		return models.NewForbiddenError("Account banned")
	}
	if user.IsMuted(now) {
		return models.NewForbiddenError("Account muted")
	}
	if needPhone {
		identity, err := s.GetIdentity(ctx, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.NewInternalError(err)
		}
		if err != nil || !identity.PhoneVerified {
			return models.NewForbiddenError("Verified phone required to post")
		}
	}
	return nil
}
