package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/qualichat/qc-backend/internal/entity"
)

// Dataset bundles an immutable table with its resolved column
// mapping and upload metadata. A new upload builds a new Dataset and
// swaps the session's pointer; in-flight aggregations keep working
// against the snapshot they started with.
type Dataset struct {
	Table   *entity.Table
	Mapping entity.ColumnMapping
	Meta    entity.DatasetMeta

	// Entities caches the distinct identifier values for the
	// classifier's entity matching.
	Entities []string
}

// Session is the in-memory state of one chat session: conversation
// context plus the current dataset reference. It is owned by one
// caller at a time; the mutex only protects against overlapping
// context writes, not against concurrent turns.
type Session struct {
	ID        string
	CreatedAt time.Time

	dataset atomic.Pointer[Dataset]

	mu  sync.Mutex
	ctx entity.ConversationContext
}

// Context returns a snapshot of the conversation context.
func (s *Session) Context() entity.ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// UpdateContext records the resolved entity and intent after a turn
// aggregated successfully. No other component mutates context.
func (s *Session) UpdateContext(intent entity.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if intent.EntityName != "" {
		s.ctx.LastEntity = intent.EntityName
	}
	s.ctx.LastIntent = intent.Tag
}

// ResetContext clears both context fields.
func (s *Session) ResetContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = entity.ConversationContext{}
}

// Dataset returns the current dataset snapshot, nil before any
// upload.
func (s *Session) Dataset() *Dataset {
	return s.dataset.Load()
}

// SwapDataset replaces the session's dataset wholesale and clears
// the conversation context, since entities of the old table are no
// longer resolvable.
func (s *Session) SwapDataset(ds *Dataset) {
	s.dataset.Store(ds)
	s.ResetContext()
}

// Info builds the API view of the session.
func (s *Session) Info() *entity.ChatSession {
	info := &entity.ChatSession{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
	}
	if ds := s.Dataset(); ds != nil {
		info.DatasetName = ds.Meta.Filename
		info.DatasetRows = ds.Meta.Rows
		info.Entities = ds.Entities
	}
	return info
}

// Store holds live sessions with TTL expiry. Sessions are not
// durable; process restart starts everyone fresh.
type Store struct {
	cache *gocache.Cache
}

func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Create registers a new session and returns it.
func (st *Store) Create() *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	st.cache.SetDefault(s.ID, s)
	return s
}

// Get returns the live session, refreshing its TTL.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	s := v.(*Session)
	st.cache.SetDefault(id, s)
	return s, nil
}

// Delete removes the session entirely.
func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}
