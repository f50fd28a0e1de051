package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabslayer/tabslayer-server/internal/events"
	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

const (
	DefaultTag                = "uncategorized"
	DefaultDescription        = "Link saved successfully."
	FailedMetadataDescription = "Metadata fetch failed."
)

// Publisher receives vault and chat events for connected clients.
type Publisher interface {
	Publish(eventType string, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

// VaultService owns the link collection, most recent first. Every mutation
// is written through to persistence before it returns.
type VaultService struct {
	mu    sync.Mutex
	links []store.Link

	persistence *store.Persistence
	annotator   Annotator
	publisher   Publisher
	log         logger.Logger

	newID func() string
	now   func() time.Time
}

// NewVaultService loads the stored vault. Unreadable data is logged and the
// vault starts empty.
func NewVaultService(ctx context.Context, p *store.Persistence, annotator Annotator, pub Publisher, log logger.Logger) *VaultService {
	if pub == nil {
		pub = nopPublisher{}
	}
	s := &VaultService{
		persistence: p,
		annotator:   annotator,
		publisher:   pub,
		log:         log,
		newID:       uuid.NewString,
		now:         time.Now,
	}

	links, err := p.LoadLinks(ctx)
	switch {
	case errors.Is(err, store.ErrPersistenceParse):
		log.Warn("failed to parse saved links, starting with an empty vault", logger.Error(err))
	case err != nil:
		log.Error("failed to load saved links, starting with an empty vault", logger.Error(err))
	default:
		s.links = links
		log.Info("vault loaded", logger.Int("links", len(links)))
	}
	return s
}

// NormalizeURL trims raw and prepends https:// unless it already starts with
// an http scheme. Blank input returns "".
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(u), "http") {
		u = "https://" + u
	}
	return u
}

// AddLink annotates and saves raw. Blank input is ignored (ok=false).
// Annotation failures never reach the caller: the link is saved with
// fallback metadata instead.
func (s *VaultService) AddLink(ctx context.Context, raw string) (link store.Link, ok bool) {
	url := NormalizeURL(raw)
	if url == "" {
		return store.Link{}, false
	}

	link = store.Link{
		ID:        s.newID(),
		URL:       url,
		CreatedAt: s.now().UnixMilli(),
	}

	a, err := s.annotator.Annotate(ctx, url)
	if err != nil {
		s.log.Warn("failed to fetch metadata", logger.String("url", url), logger.Error(err))
		link.Title = url
		link.Description = FailedMetadataDescription
		link.Tags = []string{DefaultTag}
	} else {
		link.Title = firstNonBlank(a.Title, url)
		link.Description = firstNonBlank(a.Description, DefaultDescription)
		link.Tags = cleanTags(a.Tags)
	}

	s.mu.Lock()
	s.links = append([]store.Link{link}, s.links...)
	s.saveLocked(ctx)
	s.mu.Unlock()

	link = cloneLink(link)
	s.publisher.Publish(events.LinkAdded, link)
	return link, true
}

// DeleteLink removes the link with id. An unknown id is not an error.
func (s *VaultService) DeleteLink(ctx context.Context, id string) {
	s.mu.Lock()
	removed := false
	kept := s.links[:0:0]
	for _, l := range s.links {
		if l.ID == id {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	s.links = kept
	s.saveLocked(ctx)
	s.mu.Unlock()

	if removed {
		s.publisher.Publish(events.LinkDeleted, map[string]string{"id": id})
	}
}

// Filter returns the links matching both the tag and the search query, in
// vault order. An empty tag or query matches everything.
func (s *VaultService) Filter(query, tag string) []store.Link {
	query = strings.ToLower(query)
	tag = strings.ToLower(tag)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []store.Link{}
	for _, l := range s.links {
		if matchesTag(l, tag) && matchesQuery(l, query) {
			out = append(out, cloneLink(l))
		}
	}
	return out
}

// ListTags returns every tag in the vault, lower-cased, deduplicated and sorted.
func (s *VaultService) ListTags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	tags := []string{}
	for _, l := range s.links {
		for _, t := range l.Tags {
			t = strings.ToLower(t)
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

// Links returns a copy of the whole vault.
func (s *VaultService) Links() []store.Link {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Link, len(s.links))
	for i, l := range s.links {
		out[i] = cloneLink(l)
	}
	return out
}

// saveLocked writes the vault. A failed write keeps the in-memory change.
// The write ignores cancellation of ctx: once memory changed, storage must follow.
func (s *VaultService) saveLocked(ctx context.Context) {
	if err := s.persistence.SaveLinks(context.WithoutCancel(ctx), s.links); err != nil {
		s.log.Error("failed to persist links", logger.Int("links", len(s.links)), logger.Error(err))
	}
}

func matchesTag(l store.Link, tag string) bool {
	if tag == "" {
		return true
	}
	for _, t := range l.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

func matchesQuery(l store.Link, query string) bool {
	if strings.Contains(strings.ToLower(l.Title), query) ||
		strings.Contains(strings.ToLower(l.Description), query) {
		return true
	}
	for _, t := range l.Tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{DefaultTag}
	}
	return out
}

func firstNonBlank(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func cloneLink(l store.Link) store.Link {
	l.Tags = append(make([]string, 0, len(l.Tags)), l.Tags...)
	return l
}
