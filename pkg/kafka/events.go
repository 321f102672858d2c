package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEvent reports an index notification that names no store or no
// analyzer. Publishing it again cannot succeed.
var ErrInvalidEvent = errors.New("invalid index event")

// IndexBuiltEvent announces that a freshly built index has been saved and
// may be loaded by readers of the same store.
type IndexBuiltEvent struct {
	Store     string    `json:"store"`
	Analyzer  string    `json:"analyzer"`
	Version   int       `json:"version"`
	DocCount  int       `json:"doc_count"`
	TermCount int       `json:"term_count"`
	BuiltAt   time.Time `json:"built_at"`
}

func (ev IndexBuiltEvent) validate() error {
	switch {
	case ev.Store == "":
		return fmt.Errorf("%w: missing store", ErrInvalidEvent)
	case ev.Analyzer == "":
		return fmt.Errorf("%w: missing analyzer", ErrInvalidEvent)
	}
	return nil
}

// NotifyIndexBuilt publishes ev keyed by its store name.
func (p *Producer) NotifyIndexBuilt(ctx context.Context, ev IndexBuiltEvent) error {
	if err := ev.validate(); err != nil {
		return err
	}
	return p.Publish(ctx, Event{Key: ev.Store, Value: ev})
}

// DecodeIndexBuilt parses an index notification.
func DecodeIndexBuilt(value []byte) (IndexBuiltEvent, error) {
	ev, err := DecodeJSON[IndexBuiltEvent](value)
	if err != nil {
		return ev, err
	}
	if err := ev.validate(); err != nil {
		return ev, fmt.Errorf("decoding kafka message: %w", err)
	}
	return ev, nil
}
