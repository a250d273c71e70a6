package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"aitookmyjob/internal/models"
)

// Collection file names under the data directory.
const (
	storiesFile      = "stories.json"
	versionsFile     = "story_versions.json"
	usersFile        = "users.json"
	identitiesFile   = "auth_identities.json"
	telegramFile     = "telegram_links.json"
	topicsFile       = "forum_topics.json"
	repliesFile      = "forum_replies.json"
	sanctionsFile    = "sanctions.json"
	auditFile        = "audit_log.json"
	transparencyFile = "transparency_events.json"
)

// Retention caps for append-only collections. Oldest entries are dropped
// once the cap is exceeded.
const (
	auditRetention    = 5000
	versionsRetention = 10000
)

// FileStore persists every collection as a JSON array file under a single
// directory. A process-wide mutex serializes all access, so concurrent
// requests see read-modify-write as atomic; across processes the semantics
// are last writer wins.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Ping verifies the data directory is writable.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := filepath.Join(s.dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	return os.Remove(probe)
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

// readFile decodes a collection file into out. A missing file yields an
// empty collection.
func readFile[T any](s *FileStore, name string) ([]T, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return out, nil
}

// writeFile encodes the collection to a temp file and renames it into
// place, so readers never see a partial write.
func writeFile[T any](s *FileStore, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// --- stories ---

func (s *FileStore) InsertStory(ctx context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return err
	}
	stories = append(stories, *story)
	return writeFile(s, storiesFile, stories)
}

func (s *FileStore) GetStory(ctx context.Context, id string) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return nil, err
	}
	for i := range stories {
		if stories[i].ID == id {
			story := stories[i]
			return &story, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) UpdateStory(ctx context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return err
	}
	for i := range stories {
		if stories[i].ID == story.ID {
			stories[i] = *story
			return writeFile(s, storiesFile, stories)
		}
	}
	return ErrNotFound
}

func (s *FileStore) ListStories(ctx context.Context, filter StoryFilter) ([]models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Story, 0, len(stories))
	for _, story := range stories {
		if matchStory(filter, story) {
			matched = append(matched, story)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (s *FileStore) CountStories(ctx context.Context, filter StoryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, story := range stories {
		if matchStory(filter, story) {
			count++
		}
	}
	return count, nil
}

func matchStory(filter StoryFilter, story models.Story) bool {
	if filter.Status != "" && story.Status != filter.Status {
		return false
	}
	if filter.Country != "" && !strings.EqualFold(story.Country, filter.Country) {
		return false
	}
	if filter.Language != "" && story.Language != filter.Language {
		return false
	}
	if filter.SubmittedBy != "" {
		if story.SubmittedBy == nil || *story.SubmittedBy != filter.SubmittedBy {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *FileStore) DeleteStoriesBySubmitter(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, err := readFile[models.Story](s, storiesFile)
	if err != nil {
		return err
	}
	kept := stories[:0]
	for _, story := range stories {
		if story.SubmittedBy != nil && *story.SubmittedBy == userID {
			continue
		}
		kept = append(kept, story)
	}
	return writeFile(s, storiesFile, kept)
}

func (s *FileStore) AppendStoryVersion(ctx context.Context, version *models.StoryVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, err := readFile[models.StoryVersion](s, versionsFile)
	if err != nil {
		return err
	}
	versions = append(versions, *version)
	if len(versions) > versionsRetention {
		versions = versions[len(versions)-versionsRetention:]
	}
	return writeFile(s, versionsFile, versions)
}

func (s *FileStore) ListStoryVersions(ctx context.Context, storyID string) ([]models.StoryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, err := readFile[models.StoryVersion](s, versionsFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.StoryVersion, 0)
	for _, v := range versions {
		if v.StoryID == storyID {
			matched = append(matched, v)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].VersionNo < matched[j].VersionNo
	})
	return matched, nil
}

// --- users ---

func (s *FileStore) InsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := readFile[models.User](s, usersFile)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
		if user.Phone != nil && existing.Phone != nil && *existing.Phone == *user.Phone {
			return ErrConflict
		}
	}
	users = append(users, *user)
	return writeFile(s, usersFile, users)
}

func (s *FileStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u models.User) bool { return u.ID == id })
}

func (s *FileStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *FileStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u models.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (s *FileStore) findUser(match func(models.User) bool) (*models.User, error) {
	users, err := readFile[models.User](s, usersFile)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(users[i]) {
			user := users[i]
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := readFile[models.User](s, usersFile)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = *user
			return writeFile(s, usersFile, users)
		}
	}
	return ErrNotFound
}

func (s *FileStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := readFile[models.User](s, usersFile)
	if err != nil {
		return err
	}
	kept := users[:0]
	found := false
	for _, u := range users {
		if u.ID == id {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrNotFound
	}
	if err := writeFile(s, usersFile, kept); err != nil {
		return err
	}
	identities, err := readFile[models.AuthIdentity](s, identitiesFile)
	if err != nil {
		return err
	}
	keptIdentities := identities[:0]
	for _, identity := range identities {
		if identity.UserID != id {
			keptIdentities = append(keptIdentities, identity)
		}
	}
	if err := writeFile(s, identitiesFile, keptIdentities); err != nil {
		return err
	}
	links, err := readFile[models.TelegramLink](s, telegramFile)
	if err != nil {
		return err
	}
	keptLinks := links[:0]
	for _, link := range links {
		if link.UserID != id {
			keptLinks = append(keptLinks, link)
		}
	}
	return writeFile(s, telegramFile, keptLinks)
}

func (s *FileStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := readFile[models.User](s, usersFile)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// --- identities ---

func (s *FileStore) GetIdentity(ctx context.Context, userID string) (*models.AuthIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := readFile[models.AuthIdentity](s, identitiesFile)
	if err != nil {
		return nil, err
	}
	for i := range identities {
		if identities[i].UserID == userID {
			identity := identities[i]
			return &identity, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) UpsertIdentity(ctx context.Context, identity *models.AuthIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := readFile[models.AuthIdentity](s, identitiesFile)
	if err != nil {
		return err
	}
	for i := range identities {
		if identities[i].UserID == identity.UserID {
			identities[i] = *identity
			return writeFile(s, identitiesFile, identities)
		}
	}
	identities = append(identities, *identity)
	return writeFile(s, identitiesFile, identities)
}

func (s *FileStore) GetIdentityByLinkCode(ctx context.Context, code string) (*models.AuthIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities, err := readFile[models.AuthIdentity](s, identitiesFile)
	if err != nil {
		return nil, err
	}
	for i := range identities {
		if identities[i].TelegramLinkCode != nil && *identities[i].TelegramLinkCode == code {
			identity := identities[i]
			return &identity, nil
		}
	}
	return nil, ErrNotFound
}

// --- telegram links ---

func (s *FileStore) UpsertTelegramLink(ctx context.Context, link *models.TelegramLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := readFile[models.TelegramLink](s, telegramFile)
	if err != nil {
		return err
	}
	for i := range links {
		if links[i].TelegramUserID == link.TelegramUserID && links[i].UserID != link.UserID {
			return ErrConflict
		}
	}
	for i := range links {
		if links[i].UserID == link.UserID {
			links[i] = *link
			return writeFile(s, telegramFile, links)
		}
	}
	links = append(links, *link)
	return writeFile(s, telegramFile, links)
}

func (s *FileStore) GetTelegramLinkByUser(ctx context.Context, userID string) (*models.TelegramLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := readFile[models.TelegramLink](s, telegramFile)
	if err != nil {
		return nil, err
	}
	for i := range links {
		if links[i].UserID == userID {
			link := links[i]
			return &link, nil
		}
	}
	return nil, ErrNotFound
}

// --- forum ---

func (s *FileStore) InsertTopic(ctx context.Context, topic *models.ForumTopic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, err := readFile[models.ForumTopic](s, topicsFile)
	if err != nil {
		return err
	}
	topics = append(topics, *topic)
	return writeFile(s, topicsFile, topics)
}

func (s *FileStore) GetTopic(ctx context.Context, id string) (*models.ForumTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, err := readFile[models.ForumTopic](s, topicsFile)
	if err != nil {
		return nil, err
	}
	for i := range topics {
		if topics[i].ID == id {
			topic := topics[i]
			return &topic, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) UpdateTopic(ctx context.Context, topic *models.ForumTopic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, err := readFile[models.ForumTopic](s, topicsFile)
	if err != nil {
		return err
	}
	for i := range topics {
		if topics[i].ID == topic.ID {
			topics[i] = *topic
			return writeFile(s, topicsFile, topics)
		}
	}
	return ErrNotFound
}

func (s *FileStore) ListTopics(ctx context.Context, categoryID string) ([]models.ForumTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, err := readFile[models.ForumTopic](s, topicsFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.ForumTopic, 0, len(topics))
	for _, topic := range topics {
		if categoryID == "" || topic.CategoryID == categoryID {
			matched = append(matched, topic)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *FileStore) InsertReply(ctx context.Context, reply *models.ForumReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replies, err := readFile[models.ForumReply](s, repliesFile)
	if err != nil {
		return err
	}
	replies = append(replies, *reply)
	return writeFile(s, repliesFile, replies)
}

func (s *FileStore) ListReplies(ctx context.Context, topicID string) ([]models.ForumReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replies, err := readFile[models.ForumReply](s, repliesFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.ForumReply, 0)
	for _, reply := range replies {
		if reply.TopicID == topicID {
			matched = append(matched, reply)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *FileStore) ListAllReplies(ctx context.Context) ([]models.ForumReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readFile[models.ForumReply](s, repliesFile)
}

// --- sanctions, audit, transparency ---

func (s *FileStore) InsertSanction(ctx context.Context, sanction *models.Sanction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sanctions, err := readFile[models.Sanction](s, sanctionsFile)
	if err != nil {
		return err
	}
	sanctions = append(sanctions, *sanction)
	return writeFile(s, sanctionsFile, sanctions)
}

func (s *FileStore) ListSanctions(ctx context.Context, targetUserID string) ([]models.Sanction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sanctions, err := readFile[models.Sanction](s, sanctionsFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Sanction, 0, len(sanctions))
	for _, sanction := range sanctions {
		if targetUserID == "" || sanction.TargetUserID == targetUserID {
			matched = append(matched, sanction)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *FileStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := readFile[models.AuditEntry](s, auditFile)
	if err != nil {
		return err
	}
	entries = append(entries, *entry)
	if len(entries) > auditRetention {
		entries = entries[len(entries)-auditRetention:]
	}
	return writeFile(s, auditFile, entries)
}

func (s *FileStore) ListAudit(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := readFile[models.AuditEntry](s, auditFile)
	if err != nil {
		return nil, err
	}
	matched := make([]models.AuditEntry, 0, len(entries))
	for _, entry := range entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !entry.CreatedAt.Before(filter.Until) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *FileStore) AppendTransparencyEvent(ctx context.Context, event *models.TransparencyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, err := readFile[models.TransparencyEvent](s, transparencyFile)
	if err != nil {
		return err
	}
	events = append(events, *event)
	if len(events) > auditRetention {
		events = events[len(events)-auditRetention:]
	}
	return writeFile(s, transparencyFile, events)
}

func (s *FileStore) ListTransparencyEvents(ctx context.Context) ([]models.TransparencyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, err := readFile[models.TransparencyEvent](s, transparencyFile)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

var _ Store = (*FileStore)(nil)
