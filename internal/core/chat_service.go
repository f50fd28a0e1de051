package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tabslayer/tabslayer-server/internal/events"
	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

// QueryFailedReply is the model message appended when a query fails.
const QueryFailedReply = "I had trouble scanning the vault context. Check your link status."

type ChatState int

const (
	StateIdle ChatState = iota
	StateAwaitingReply
)

func (s ChatState) String() string {
	if s == StateAwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// LinkSource is the read-only view of the vault the chat needs.
type LinkSource interface {
	Links() []store.Link
}

// ChatService keeps the session transcript and allows one query in flight.
type ChatService struct {
	mu         sync.Mutex
	transcript []store.ChatMessage
	state      ChatState

	vault     LinkSource
	querier   Querier
	publisher Publisher
	log       logger.Logger

	now func() time.Time
}

func NewChatService(vault LinkSource, querier Querier, pub Publisher, log logger.Logger) *ChatService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &ChatService{
		vault:     vault,
		querier:   querier,
		publisher: pub,
		log:       log,
		now:       time.Now,
	}
}

// Submit asks question about the current vault and returns the model's reply.
// A blank question or one submitted while another is pending is rejected
// without touching the transcript. Query failures become an apology message.
func (s *ChatService) Submit(ctx context.Context, question string) (store.ChatMessage, error) {
	if strings.TrimSpace(question) == "" {
		return store.ChatMessage{}, ErrBlankQuestion
	}

	s.mu.Lock()
	if s.state == StateAwaitingReply {
		s.mu.Unlock()
		return store.ChatMessage{}, ErrQueryInFlight
	}
	userMsg := store.ChatMessage{
		Role:      store.RoleUser,
		Text:      question,
		Timestamp: s.now().UnixMilli(),
	}
	s.transcript = append(s.transcript, userMsg)
	s.state = StateAwaitingReply
	s.mu.Unlock()

	s.publisher.Publish(events.ChatMessage, userMsg)

	// A panicking querier must not leave the chat stuck awaiting a reply.
	answered := false
	defer func() {
		if !answered {
			s.log.Error("vault query aborted")
			s.finish(store.ChatMessage{Role: store.RoleModel, Text: QueryFailedReply})
		}
	}()

	links := s.vault.Links()
	reply := store.ChatMessage{Role: store.RoleModel}

	result, err := s.querier.Query(ctx, question, links)
	if err != nil {
		s.log.Warn("vault query failed", logger.Error(err))
		reply.Text = QueryFailedReply
	} else {
		reply.Text = result.Answer
		reply.RelatedLinkIDs = knownIDs(result.RelatedLinkIDs, links)
		if dropped := len(result.RelatedLinkIDs) - len(reply.RelatedLinkIDs); dropped > 0 {
			s.log.Debug("ignored related link ids not in the vault", logger.Int("dropped", dropped))
		}
	}

	reply = s.finish(reply)
	answered = true
	return reply, nil
}

// finish appends the model reply, returns to idle and publishes the reply
// and its highlight.
func (s *ChatService) finish(reply store.ChatMessage) store.ChatMessage {
	s.mu.Lock()
	reply.Timestamp = s.now().UnixMilli()
	s.transcript = append(s.transcript, reply)
	s.state = StateIdle
	s.mu.Unlock()

	s.publisher.Publish(events.ChatMessage, reply)
	if len(reply.RelatedLinkIDs) > 0 {
		s.publisher.Publish(events.ChatHighlight, map[string][]string{"ids": reply.RelatedLinkIDs})
	}
	return reply
}

// Transcript returns a copy of the session's messages, oldest first.
func (s *ChatService) Transcript() []store.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *ChatService) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// knownIDs keeps the ids present in links, in order, without duplicates.
// It returns nil when none remain.
func knownIDs(ids []string, links []store.Link) []string {
	present := make(map[string]struct{}, len(links))
	for _, l := range links {
		present[l.ID] = struct{}{}
	}

	var out []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			continue
		}
		delete(present, id)
		out = append(out, id)
	}
	return out
}
