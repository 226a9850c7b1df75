package session

import (
	"context"
	"errors"
	"time"

	"accident-advisor-be/pkg/advisor/category"
)

// Turn is one completed user/bot exchange.
type Turn struct {
	UserText  string            `json:"user_text"`
	BotText   string            `json:"bot_text"`
	Category  category.Category `json:"category"`
	Entities  []string          `json:"entities,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// State is the full per-session conversational context.
type State struct {
	ID            string                    `json:"id"`
	Turns         []Turn                    `json:"turns"`
	Entities      []string                  `json:"entities,omitempty"`
	CategoryUsage map[category.Category]int `json:"category_usage,omitempty"`
	LastAccess    time.Time                 `json:"last_access"`
}

// ErrCorrupted signals that a stored session could not be decoded. The
// memory layer resets such sessions transparently instead of surfacing
// the error to callers.
var ErrCorrupted = errors.New("session: stored state corrupted")

// Store is the raw session state storage. Implementations do not need to
// be aware of turn capacity or TTL; Memory enforces both. Get returns
// (nil, nil) for an unknown session id.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
}
