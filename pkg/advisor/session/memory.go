package session

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"accident-advisor-be/pkg/advisor/category"
)

// Config encapsulates session memory parameters.
type Config struct {
	// Capacity is the number of turns retained per session, oldest
	// evicted first.
	Capacity int
	// MaxEntities bounds the most-recently-seen identifier set.
	MaxEntities int
	// TTL is the idle window after which a session is swept.
	TTL time.Duration
}

// DefaultConfig returns default session memory parameters.
func DefaultConfig() Config {
	return Config{
		Capacity:    8,
		MaxEntities: 20,
		TTL:         24 * time.Hour,
	}
}

const lockStripes = 64

// Memory holds bounded per-session conversational context on top of a
// Store. Access to a given session is serialized through a striped lock
// keyed by session id, so unrelated sessions never contend.
type Memory struct {
	store  Store
	config Config
	locks  [lockStripes]sync.Mutex
	logger *log.Logger
}

// NewMemory creates session memory over a store backend.
func NewMemory(store Store, config Config, logger *log.Logger) *Memory {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	if config.MaxEntities <= 0 {
		config.MaxEntities = DefaultConfig().MaxEntities
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Memory{store: store, config: config, logger: logger}
}

func (m *Memory) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &m.locks[h.Sum32()%lockStripes]
}

// GetContext returns the recent turns and the entity set for a session.
// Unknown sessions yield empty context. A corrupted session is reset and
// treated as new.
func (m *Memory) GetContext(ctx context.Context, id string) ([]Turn, []string, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if state == nil {
		return nil, nil, nil
	}

	state.LastAccess = time.Now()
	if err := m.store.Put(ctx, state); err != nil {
		return nil, nil, err
	}

	turns := make([]Turn, len(state.Turns))
	copy(turns, state.Turns)
	entities := make([]string, len(state.Entities))
	copy(entities, state.Entities)
	return turns, entities, nil
}

// AppendTurn records a completed exchange, evicting the oldest turn once
// capacity is exceeded and folding the turn's entities into the bounded
// most-recent set.
func (m *Memory) AppendTurn(ctx context.Context, id string, turn Turn) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if state == nil {
		state = &State{ID: id}
	}

	state.Turns = append(state.Turns, turn)
	if len(state.Turns) > m.config.Capacity {
		state.Turns = state.Turns[len(state.Turns)-m.config.Capacity:]
	}

	state.Entities = mergeEntities(turn.Entities, state.Entities, m.config.MaxEntities)

	if state.CategoryUsage == nil {
		state.CategoryUsage = make(map[category.Category]int)
	}
	state.CategoryUsage[turn.Category]++

	if turn.Timestamp.IsZero() {
		state.LastAccess = time.Now()
	} else {
		state.LastAccess = turn.Timestamp
	}

	return m.store.Put(ctx, state)
}

// CategoryUsage returns how many turns of each category a session has
// accumulated. Unknown sessions yield an empty map.
func (m *Memory) CategoryUsage(ctx context.Context, id string) (map[category.Category]int, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	usage := make(map[category.Category]int)
	if state != nil {
		for cat, count := range state.CategoryUsage {
			usage[cat] = count
		}
	}
	return usage, nil
}

// load fetches a session, resetting it transparently when the stored
// state cannot be decoded.
func (m *Memory) load(ctx context.Context, id string) (*State, error) {
	state, err := m.store.Get(ctx, id)
	if err == ErrCorrupted {
		if m.logger != nil {
			m.logger.Printf("[WARN] Resetting corrupted session %s", id)
		}
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}
	return state, err
}

// Sweep removes sessions idle longer than the TTL. Each removal takes
// only that session's lock, so live sessions are never blocked for the
// duration of the scan. Returns the number of sessions removed.
func (m *Memory) Sweep(ctx context.Context, now time.Time) int {
	ids, err := m.store.IDs(ctx)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("[WARN] Session sweep failed to list sessions: %v", err)
		}
		return 0
	}

	removed := 0
	cutoff := now.Add(-m.config.TTL)
	for _, id := range ids {
		lock := m.lockFor(id)
		lock.Lock()
		state, err := m.store.Get(ctx, id)
		if err == ErrCorrupted {
			_ = m.store.Delete(ctx, id)
			removed++
			lock.Unlock()
			continue
		}
		if err == nil && state != nil && state.LastAccess.Before(cutoff) {
			if err := m.store.Delete(ctx, id); err == nil {
				removed++
			}
		}
		lock.Unlock()
	}
	return removed
}

// mergeEntities keeps the most recent identifiers first, dropping
// duplicates and capping the set.
func mergeEntities(recent, existing []string, limit int) []string {
	merged := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, lists := range [][]string{recent, existing} {
		for _, e := range lists {
			if e == "" || seen[e] {
				continue
			}
			seen[e] = true
			merged = append(merged, e)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}
