package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestAuditor(st store.Store) (*Auditor, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuditor(st, logger), logger
}

var testPhoneSeq atomic.Int64

// createVerifiedUser inserts a user that passes the phone gate. Phones
// must be unique, so each user gets a fresh number.
func createVerifiedUser(t *testing.T, st store.Store, email, role string) *models.User {
	t.Helper()
	ctx := context.Background()
	phone := fmt.Sprintf("+1555000%04d", testPhoneSeq.Add(1))
	user := &models.User{
		ID:           idgen.EntityID(),
		Email:        email,
		Phone:        &phone,
		Role:         role,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.InsertUser(ctx, user))
	require.NoError(t, st.UpsertIdentity(ctx, &models.AuthIdentity{
		UserID:        user.ID,
		EmailVerified: true,
		Phone:         &phone,
		PhoneVerified: true,
		UpdatedAt:     time.Now().UTC(),
	}))
	return user
}

// validSubmission returns a submission that scores low risk.
func validSubmission() SubmitStoryInput {
	return SubmitStoryInput{
		Name:         "Jane Doe",
		Country:      "us",
		Language:     "en",
		Profession:   "Copywriter",
		Company:      "Acme Media",
		LaidOffAt:    "2025-03",
		Reason:       "Content pipeline automated",
		Story:        "After six years writing product copy the whole team was let go when the work moved to a generation pipeline.",
		NDAConfirmed: true,
	}
}

func newStoryService(st store.Store) *StoryService {
	auditor, logger := newTestAuditor(st)
	return NewStoryService(st, auditor, NopNotifier{}, logger, "global", "en")
}
