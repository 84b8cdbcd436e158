package chatsync

import "errors"

var (
	// ErrEmptyContent rejects blank or whitespace-only sends before the
	// backend is contacted.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrContentTooLong rejects content above the configured cap.
	ErrContentTooLong = errors.New("message content is too long")
	// ErrSendInFlight rejects a send while a prior one has not completed,
	// guarding against duplicate submissions from rapid re-taps.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrScreenNotLive rejects operations on a screen that is not live.
	ErrScreenNotLive = errors.New("chat screen is not live")
)

// FetchError reports a failed history load. The caller may retry Open.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "load history: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// SendError reports a failed message insert. Draft carries the typed content
// so the caller can restore it to the input instead of losing it.
type SendError struct {
	Draft string
	Err   error
}

func (e *SendError) Error() string { return "send message: " + e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// SubscriptionError reports a realtime channel that failed to establish. It
// is logged, not surfaced; the screen stays usable without live pushes.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string { return "subscribe: " + e.Err.Error() }
func (e *SubscriptionError) Unwrap() error { return e.Err }
