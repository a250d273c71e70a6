package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

func TestSubmitAnonymousLowRisk(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	result, err := svc.Submit(ctx, validSubmission(), nil, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, result.AutoRejected)
	assert.Equal(t, models.StoryStatusPending, result.Story.Status)
	assert.Equal(t, models.RiskBandLow, result.Story.Moderation.RiskBand)
	assert.Nil(t, result.Story.SubmittedBy)

	versions, err := st.ListStoryVersions(ctx, result.Story.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNo)
}

func TestSubmitShortStoryRejectedWithoutPersisting(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	in := validSubmission()
	in.Story = "Too short to publish."
	_, err := svc.Submit(ctx, in, nil, "1.2.3.4")
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.NotEmpty(t, appErr.Fields)
	assert.Equal(t, "story", appErr.Fields[0].Field)

	count, err := st.CountStories(ctx, store.StoryFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitRequiresNDAConfirmation(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	in := validSubmission()
	in.NDAConfirmed = false
	_, err := svc.Submit(ctx, in, nil, "1.2.3.4")

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "ndaConfirmed", appErr.Fields[0].Field)
}

func TestSubmitHighRiskAutoRejected(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	in := validSubmission()
	in.Story = "I lost my job and honestly I feel like there is no reason to live anymore, every day since has been a struggle to keep going."
	result, err := svc.Submit(ctx, in, nil, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, result.AutoRejected)
	assert.Equal(t, models.StoryStatusRejected, result.Story.Status)
	assert.Equal(t, models.RiskBandHigh, result.Story.Moderation.RiskBand)

	// Rejected stories never appear in the public feed.
	listing, err := svc.ListPublic(ctx, ListPublicInput{})
	require.NoError(t, err)
	assert.Zero(t, listing.Total)
	assert.Empty(t, listing.Stories)
}

func TestSubmitAuthenticatedRequiresVerifiedPhone(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	user := &models.User{ID: "u-nophone", Email: "nophone@example.com", Role: "user", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.InsertUser(ctx, user))

	_, err := svc.Submit(ctx, validSubmission(), &Actor{ID: user.ID, Role: "user"}, "1.2.3.4")
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestSubmitAuthenticatedSetsSubmitter(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	user := createVerifiedUser(t, st, "author@example.com", "user")
	result, err := svc.Submit(ctx, validSubmission(), &Actor{ID: user.ID, Role: "user"}, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, result.Story.SubmittedBy)
	assert.Equal(t, user.ID, *result.Story.SubmittedBy)
}

func TestSubmitMutedUserBlocked(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	user := createVerifiedUser(t, st, "muted@example.com", "user")
	until := time.Now().UTC().Add(48 * time.Hour)
	user.MutedUntil = &until
	require.NoError(t, st.UpdateUser(ctx, user))

	_, err := svc.Submit(ctx, validSubmission(), &Actor{ID: user.ID, Role: "user"}, "1.2.3.4")
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestListPublicDefaultsAndFilters(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	for i, country := range []string{"us", "us", "de"} {
		story := &models.Story{
			ID: fmt.Sprintf("pub-%d", i), Name: "N", Country: country,
			Language: "en", Profession: "QA", Company: "C", LaidOffAt: "2025-01",
			Reason: "automated", Body: "b", Status: models.StoryStatusPublished,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, st.InsertStory(ctx, story))
	}

	all, err := svc.ListPublic(ctx, ListPublicInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, "global", all.Country)
	assert.NotEmpty(t, all.CrisisResources)

	us, err := svc.ListPublic(ctx, ListPublicInput{Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, 2, us.Total)
	assert.Equal(t, "us", us.Country)

	// Unrecognized country values clamp to the global listing instead of
	// being echoed back.
	unknown, err := svc.ListPublic(ctx, ListPublicInput{Country: "<script>xx</script>"})
	require.NoError(t, err)
	assert.Equal(t, "global", unknown.Country)
	assert.Equal(t, 3, unknown.Total)
}

func TestEngagementCountersOnlyOnPublished(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	result, err := svc.Submit(ctx, validSubmission(), nil, "1.2.3.4")
	require.NoError(t, err)

	// Pending stories are not publicly addressable.
	_, err = svc.RecordView(ctx, result.Story.ID)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	result.Story.Status = models.StoryStatusPublished
	require.NoError(t, st.UpdateStory(ctx, result.Story))

	metrics, err := svc.RecordView(ctx, result.Story.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Views)

	metrics, err = svc.RecordMeToo(ctx, result.Story.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.MeToo)

	metrics, err = svc.RecordComment(ctx, result.Story.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.CommentsCount)
}

func TestUpdateStoryOwnerAndModeratorOnly(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	owner := createVerifiedUser(t, st, "owner@example.com", "user")
	result, err := svc.Submit(ctx, validSubmission(), &Actor{ID: owner.ID, Role: "user"}, "1.2.3.4")
	require.NoError(t, err)
	result.Story.Status = models.StoryStatusPublished
	require.NoError(t, st.UpdateStory(ctx, result.Story))

	other := createVerifiedUser(t, st, "other@example.com", "user")
	_, err = svc.Update(ctx, result.Story.ID, UpdateStoryInput{FoundNewJob: true}, &Actor{ID: other.ID, Role: "user"})
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	updated, err := svc.Update(ctx, result.Story.ID, UpdateStoryInput{FoundNewJob: true, UpdateLabel: "Found contract work"}, &Actor{ID: owner.ID, Role: "user"})
	require.NoError(t, err)
	assert.True(t, updated.FoundNewJob)
	assert.Equal(t, "Found contract work", updated.UpdateLabel)

	mod := createVerifiedUser(t, st, "mod@example.com", "moderator")
	moderated, err := svc.Update(ctx, result.Story.ID, UpdateStoryInput{FoundNewJob: false}, &Actor{ID: mod.ID, Role: "moderator"})
	require.NoError(t, err)
	assert.False(t, moderated.FoundNewJob)
}

func TestUpdateStoryMutedOwnerBlocked(t *testing.T) {
	st := newTestStore(t)
	svc := newStoryService(st)
	ctx := context.Background()

	owner := createVerifiedUser(t, st, "muted-owner@example.com", "user")
	result, err := svc.Submit(ctx, validSubmission(), &Actor{ID: owner.ID, Role: "user"}, "1.2.3.4")
	require.NoError(t, err)
	result.Story.Status = models.StoryStatusPublished
	require.NoError(t, st.UpdateStory(ctx, result.Story))

	until := time.Now().UTC().Add(48 * time.Hour)
	owner.MutedUntil = &until
	require.NoError(t, st.UpdateUser(ctx, owner))

	_, err = svc.Update(ctx, result.Story.ID, UpdateStoryInput{UpdateLabel: "still here"}, &Actor{ID: owner.ID, Role: "user"})
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	unchanged, err := st.GetStory(ctx, result.Story.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.UpdateLabel)
}
