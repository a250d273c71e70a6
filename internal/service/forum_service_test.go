package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/store"
)

func newForumService(st store.Store) *ForumService {
	auditor, logger := newTestAuditor(st)
	return NewForumService(st, auditor, logger, "global", "en")
}

func TestCreateTopicAndReplyFlow(t *testing.T) {
	st := newTestStore(t)
	svc := newForumService(st)
	ctx := context.Background()

	author := createVerifiedUser(t, st, "forum@example.com", "user")
	actor := &Actor{ID: author.ID, Role: "user"}

	topic, err := svc.CreateTopic(ctx, CreateTopicInput{
		CategoryID: "dev",
		Title:      "What roles did QA folks move into?",
		Body:       "Our QA department was dissolved last month and I am trying to figure out a realistic next step.",
	}, actor, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "dev", topic.CategoryID)
	assert.Zero(t, topic.Replies)

	reply, err := svc.CreateReply(ctx, topic.ID, CreateReplyInput{Body: "SDET openings still exist, look at infra teams."}, actor, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, topic.ID, reply.TopicID)

	detail, err := svc.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Topic.Replies)
	assert.Equal(t, reply.CreatedAt, detail.Topic.LastUpdate)
	require.Len(t, detail.Replies, 1)
}

func TestReplyCountAlwaysRecomputed(t *testing.T) {
	st := newTestStore(t)
	svc := newForumService(st)
	ctx := context.Background()

	author := createVerifiedUser(t, st, "count@example.com", "user")
	actor := &Actor{ID: author.ID, Role: "user"}

	topic, err := svc.CreateTopic(ctx, CreateTopicInput{
		CategoryID: "up",
		Title:      "Reskilling resources that actually helped",
		Body:       "Collecting links to the courses and communities people used after a layoff.",
	}, actor, "1.2.3.4")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateReply(ctx, topic.ID, CreateReplyInput{Body: "Adding one more link to the pile."}, actor, "1.2.3.4")
		require.NoError(t, err)
	}

	topics, err := svc.ListTopics(ctx, "up")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, 3, topics[0].Replies)
}

func TestCreateTopicValidation(t *testing.T) {
	st := newTestStore(t)
	svc := newForumService(st)
	ctx := context.Background()

	author := createVerifiedUser(t, st, "val@example.com", "user")
	actor := &Actor{ID: author.ID, Role: "user"}

	_, err := svc.CreateTopic(ctx, CreateTopicInput{CategoryID: "nope", Title: "short", Body: "too short"}, actor, "1.2.3.4")
	assertCode(t, err, "VALIDATION_ERROR")

	_, err = svc.CreateTopic(ctx, CreateTopicInput{
		CategoryID: "dev",
		Title:      "A perfectly fine topic title",
		Body:       "A body that is comfortably over the minimum length requirement.",
	}, nil, "1.2.3.4")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestReplyRequiresNoPhoneButTopicDoes(t *testing.T) {
	st := newTestStore(t)
	svc := newForumService(st)
	ctx := context.Background()

	// Account without a verified phone.
	authSvc := newAuthService(st)
	user, err := authSvc.Register(ctx, RegisterInput{Email: "nophone2@example.com", Password: "Str0ngPass!"}, "1.2.3.4")
	require.NoError(t, err)
	actor := &Actor{ID: user.ID, Role: "user"}

	_, err = svc.CreateTopic(ctx, CreateTopicInput{
		CategoryID: "dev",
		Title:      "Should fail without a verified phone",
		Body:       "Topics require the phone gate, replies do not, per the write policy.",
	}, actor, "1.2.3.4")
	assertCode(t, err, "FORBIDDEN")

	verified := createVerifiedUser(t, st, "haspnone@example.com", "user")
	topic, err := svc.CreateTopic(ctx, CreateTopicInput{
		CategoryID: "dev",
		Title:      "A topic created by a verified account",
		Body:       "This exists so the unverified account has something to reply to.",
	}, &Actor{ID: verified.ID, Role: "user"}, "1.2.3.4")
	require.NoError(t, err)

	_, err = svc.CreateReply(ctx, topic.ID, CreateReplyInput{Body: "Replying works without a phone."}, actor, "1.2.3.4")
	require.NoError(t, err)
}

func TestCompanyBoardTopics(t *testing.T) {
	st := newTestStore(t)
	svc := newForumService(st)
	ctx := context.Background()

	author := createVerifiedUser(t, st, "board@example.com", "user")
	actor := &Actor{ID: author.ID, Role: "user"}

	_, err := svc.CreateCompanyBoardTopic(ctx, "Acme-Corp", CreateTopicInput{
		Title: "Anyone else from the March round?",
		Body:  "Trying to find former colleagues to compare severance terms with.",
	}, actor, "1.2.3.4")
	require.NoError(t, err)

	topics, err := svc.CompanyBoard(ctx, "acme-corp")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "company:acme-corp", topics[0].CategoryID)

	// Company boards do not leak into the regular category listing.
	devTopics, err := svc.ListTopics(ctx, "dev")
	require.NoError(t, err)
	assert.Empty(t, devTopics)
}
