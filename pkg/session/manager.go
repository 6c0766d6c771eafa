package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/google/uuid"
)

// Factory builds the session for a fresh id.
type Factory func(ctx context.Context, id string) (*Session, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	factory Factory

	mu       sync.Mutex // guards sessions, locks and subs
	sessions map[string]*Session
	locks    map[string]*lockEntry
	subs     map[string]map[int]chan domain.CompletionEvent
	nextSub  int

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	journal   ports.Journal
	notifier  ports.Notifier
	ioTimeout time.Duration
	buffer    int
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of the distributed lock. Defaults to 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithJournal records every finished transition.
func WithJournal(j ports.Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithNotifier forwards completion events outside the process.
func WithNotifier(n ports.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithSubscriberBuffer sets the channel size of Subscribe. Events are
// dropped for subscribers whose buffer is full.
func WithSubscriberBuffer(n int) Option {
	return func(m *Manager) {
		m.buffer = n
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager that builds sessions with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:   factory,
		sessions:  make(map[string]*Session),
		locks:     make(map[string]*lockEntry),
		subs:      make(map[string]map[int]chan domain.CompletionEvent),
		lockTTL:   30 * time.Second,
		ioTimeout: 5 * time.Second,
		buffer:    16,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Open returns the session with the given id, creating it when missing.
// An empty id generates a new one.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var s *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if existing, ok := m.lookup(sessionID); ok {
			s = existing
			return nil
		}

		created, err := m.factory(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to create session %q: %w", sessionID, err)
		}
		if created.ID == "" {
			created.ID = sessionID
		}
		if created.CreatedAt.IsZero() {
			created.CreatedAt = time.Now()
		}
		m.bind(created)

		m.mu.Lock()
		m.sessions[sessionID] = created
		m.mu.Unlock()

		m.logger.Info("session opened", "session_id", sessionID)
		s = created
		return nil
	})
	return s, err
}

// Get returns an open session without locking it.
func (m *Manager) Get(sessionID string) (*Session, error) {
	if s, ok := m.lookup(sessionID); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
}

// Do runs fn with exclusive access to the session.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, ok := m.lookup(sessionID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return fn(ctx, s)
	})
}

// Close closes the session and removes it from the manager. Subscriptions
// of the session are closed.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		s, ok := m.sessions[sessionID]
		delete(m.sessions, sessionID)
		subs := m.subs[sessionID]
		delete(m.subs, sessionID)
		m.mu.Unlock()

		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		for _, ch := range subs {
			close(ch)
		}
		m.logger.Info("session closed", "session_id", sessionID)
		return closeSession(s)
	})
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns the ids of open sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// History returns the journaled transitions of a session, newest first.
// Without a journal it returns nothing.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error) {
	if m.journal == nil {
		return nil, nil
	}
	return m.journal.History(ctx, sessionID, limit)
}

// Subscribe returns a channel receiving the completion events of a session
// and a function that cancels the subscription. The channel is closed on
// cancel or when the session is closed.
func (m *Manager) Subscribe(sessionID string) (<-chan domain.CompletionEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	id := m.nextSub
	m.nextSub++
	ch := make(chan domain.CompletionEvent, m.buffer)
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[int]chan domain.CompletionEvent)
	}
	m.subs[sessionID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[sessionID][id]; ok {
				delete(m.subs[sessionID], id)
				close(c)
			}
		})
	}
	return ch, cancel, nil
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) lookup(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// bind routes the transitioner's completion and record signals.
func (m *Manager) bind(s *Session) {
	id := s.ID
	s.unbind = append(s.unbind,
		s.T.OnComplete(func(ev domain.CompletionEvent) {
			m.publish(id, ev)
		}),
		s.T.OnRecord(func(rec domain.Record) {
			m.journalRecord(id, rec)
		}),
	)
}

func (m *Manager) publish(sessionID string, ev domain.CompletionEvent) {
	if ev.SessionID == "" {
		ev.SessionID = sessionID
	}

	m.mu.Lock()
	for _, ch := range m.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("dropping completion event for slow subscriber", "session_id", sessionID)
		}
	}
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.ioTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, ev); err != nil {
		m.logger.Warn("failed to notify completion", "session_id", sessionID, "err", err)
	}
}

func (m *Manager) journalRecord(sessionID string, rec domain.Record) {
	if m.journal == nil {
		return
	}
	if rec.SessionID == "" {
		rec.SessionID = sessionID
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.ioTimeout)
	defer cancel()
	if err := m.journal.Record(ctx, rec); err != nil {
		m.logger.Warn("failed to journal transition", "session_id", sessionID, "err", err)
	}
}

func closeSession(s *Session) error {
	for _, fn := range s.unbind {
		fn()
	}
	err := s.T.Close()
	if s.Release != nil {
		err = errors.Join(err, s.Release())
	}
	return err
}
