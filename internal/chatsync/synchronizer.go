package chatsync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"community-service/internal/models"
)

// State is the lifecycle of one open chat screen.
type State int

const (
	StateLoading State = iota
	StateLive
	StateClosed
)

// Store is the slice of the backend a chat screen reads and writes.
type Store interface {
	ListGroupMessages(ctx context.Context, groupID string) ([]models.MessageView, error)
	CreateMessage(ctx context.Context, groupID, userID, content string, anonymous bool) (models.Message, error)
}

// Subscription is an owned realtime handle. Close is synchronous; after it
// returns no further message is delivered on Events.
type Subscription interface {
	Events() <-chan models.MessageView
	Close()
}

// Feed establishes standing insert subscriptions for a group.
type Feed interface {
	Subscribe(groupID string) (Subscription, error)
}

// FeedFunc adapts a subscribe function that cannot fail.
type FeedFunc func(groupID string) Subscription

func (f FeedFunc) Subscribe(groupID string) (Subscription, error) { return f(groupID), nil }

// Author is the locally signed-in user. The optimistic echo is rendered from
// it, since the round-tripped insert event may arrive later.
type Author struct {
	ID        string
	FullName  string
	AvatarURL *string
}

// Screen synchronizes a live, deduplicated, time-ordered transcript for one
// group. Messages enter the transcript from two producers, the optimistic
// local echo and the realtime push; both funnel through the same id-keyed
// merge gate, so whichever delivers a given id first wins and the second is a
// no-op.
type Screen struct {
	groupID string
	author  Author
	store   Store
	feed    Feed
	maxLen  int
	log     *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	sub        Subscription
	transcript []models.MessageView
	known      map[string]struct{}
	sending    bool
}

// NewScreen builds a screen in the Loading state. maxLen of zero disables the
// content length cap.
func NewScreen(store Store, feed Feed, groupID string, author Author, maxLen int, log *zap.SugaredLogger) *Screen {
	return &Screen{
		groupID: groupID,
		author:  author,
		store:   store,
		feed:    feed,
		maxLen:  maxLen,
		log:     log,
		known:   make(map[string]struct{}),
	}
}

// Open arms the subscription and loads the transcript. The subscription is
// established before the history fetch, so an insert landing during the fetch
// is buffered and deduplicated rather than missed. On a failed fetch the
// screen stays in Loading with the subscription torn down; Open may be
// retried. Opening again replaces, never stacks, the prior subscription.
func (s *Screen) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrScreenNotLive
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	sub, err := s.feed.Subscribe(s.groupID)
	if err != nil {
		// Not escalated: the screen stays usable without live pushes.
		s.log.Errorw("realtime subscription failed", "group_id", s.groupID,
			"error", &SubscriptionError{Err: err})
		sub = nil
	}
	s.sub = sub
	s.mu.Unlock()

	history, err := s.store.ListGroupMessages(ctx, s.groupID)
	if err != nil {
		s.mu.Lock()
		if s.sub == sub && sub != nil {
			sub.Close()
			s.sub = nil
		}
		s.mu.Unlock()
		return &FetchError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		// screen closed while the fetch was in flight; discard the result
		return ErrScreenNotLive
	}
	for _, msg := range history {
		s.merge(msg)
	}
	s.state = StateLive
	return nil
}

// ApplyRemote merges a realtime push into the transcript. It reports whether
// the message was appended; false means the id was already present, typically
// because the push is the echo of a message this screen just sent.
func (s *Screen) ApplyRemote(msg models.MessageView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLive {
		return false
	}
	return s.merge(msg)
}

// Send validates and persists an outgoing message, then appends the
// optimistic local echo through the merge gate. A failed insert returns a
// SendError carrying the draft so the caller restores it to the input.
func (s *Screen) Send(ctx context.Context, content string, anonymous bool) (models.MessageView, error) {
	trimmed, err := ValidateContent(content, s.maxLen)
	if err != nil {
		return models.MessageView{}, err
	}

	s.mu.Lock()
	if s.state != StateLive {
		s.mu.Unlock()
		return models.MessageView{}, ErrScreenNotLive
	}
	if s.sending {
		s.mu.Unlock()
		return models.MessageView{}, ErrSendInFlight
	}
	s.sending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	msg, err := s.store.CreateMessage(ctx, s.groupID, s.author.ID, trimmed, anonymous)
	if err != nil {
		return models.MessageView{}, &SendError{Draft: content, Err: err}
	}

	view := models.MessageView{
		Message:      msg,
		AuthorName:   s.author.FullName,
		AuthorAvatar: s.author.AvatarURL,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLive {
		s.merge(view)
	}
	return view, nil
}

// Close tears down the subscription. It is synchronous: once Close returns,
// no event is applied to this screen anymore. A fetch still in flight is
// discarded, not crashed.
func (s *Screen) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Transcript returns a copy of the current ordered message list.
func (s *Screen) Transcript() []models.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MessageView, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Events exposes the realtime delivery channel, or nil when no subscription
// is armed. Valid after a successful Open.
func (s *Screen) Events() <-chan models.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Events()
}

// State reports the current lifecycle state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GroupID returns the group this screen is bound to.
func (s *Screen) GroupID() string {
	return s.groupID
}

// merge appends msg unless its id is already known. Callers hold s.mu. New
// messages only ever append at the tail; the list stays ascending because
// inserts always carry the newest creation time.
func (s *Screen) merge(msg models.MessageView) bool {
	if _, ok := s.known[msg.ID]; ok {
		return false
	}
	s.known[msg.ID] = struct{}{}
	s.transcript = append(s.transcript, msg)
	return true
}
