package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/geocode"
)

var (
	// ErrPersonNotFound is returned when a view is opened for an id that is
	// not in the current snapshot.
	ErrPersonNotFound = errors.New("person not found")
	// ErrViewNotFound is returned for an unknown or closed view id.
	ErrViewNotFound = errors.New("detail view not found")
	// ErrViewClosed is returned when a lookup completes after its view closed.
	ErrViewClosed = errors.New("detail view closed")
	// ErrManagerClosed is returned by Open after Close.
	ErrManagerClosed = errors.New("detail manager closed")
)

const (
	defaultTimeout  = 10 * time.Second
	defaultTTL      = 30 * time.Minute
	defaultMaxViews = 1000
)

// AddressStatus is the state of the address lookup of a view.
type AddressStatus string

const (
	AddressPending     AddressStatus = "pending"
	AddressResolved    AddressStatus = "resolved"
	AddressNotFound    AddressStatus = "not_found"
	AddressUnavailable AddressStatus = "unavailable"
)

// OutcomeDiscarded is reported to the Observer for late lookups.
const OutcomeDiscarded = "discarded"

// Address is the lookup result attached to a view.
type Address struct {
	Status AddressStatus `json:"status"`
	Text   string        `json:"text,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// View is one open detail view of a person. It belongs to the snapshot the
// person was read from; once that snapshot is replaced the person is stale.
type View struct {
	ID         string        `json:"id"`
	PersonID   string        `json:"personId"`
	SnapshotID ulid.ULID     `json:"snapshotId"`
	Person     domain.Person `json:"person"`
	Address    Address       `json:"address"`
	OpenedAt   time.Time     `json:"openedAt"`
}

// PersonLookup finds people in the current snapshot and names that snapshot.
type PersonLookup interface {
	LookupInSnapshot(id string) (domain.Person, ulid.ULID, bool)
}

// Observer is told the outcome of every lookup.
type Observer interface {
	ObserveLookup(outcome string)
}

// Options configures a Manager. Views older than TTL are dropped, and when
// MaxViews are open the oldest makes room for a new one.
type Options struct {
	Timeout  time.Duration
	TTL      time.Duration
	MaxViews int
	Logger   *slog.Logger
	Observer Observer
}

type entry struct {
	view   View
	cancel context.CancelFunc
}

// Manager tracks open detail views and their address lookups. A view owns at
// most one lookup; closing the view cancels it and any result that still
// arrives is dropped.
type Manager struct {
	people   PersonLookup
	resolver geocode.Resolver
	timeout  time.Duration
	ttl      time.Duration
	maxViews int
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu     sync.Mutex
	views  map[string]*entry
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager returns a Manager. A nil resolver marks every address
// unavailable.
func NewManager(people PersonLookup, resolver geocode.Resolver, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxViews := opts.MaxViews
	if maxViews <= 0 {
		maxViews = defaultMaxViews
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		people:   people,
		resolver: resolver,
		timeout:  timeout,
		ttl:      ttl,
		maxViews: maxViews,
		logger:   logger.With("component", "detail"),
		observer: opts.Observer,
		now:      time.Now,
		views:    make(map[string]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Open opens a view for personID and starts its address lookup.
func (m *Manager) Open(personID string) (View, error) {
	person, snapshotID, ok := m.people.LookupInSnapshot(personID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}

	v := View{
		ID:         uuid.NewString(),
		PersonID:   person.ID,
		SnapshotID: snapshotID,
		Person:     person,
		Address:    Address{Status: AddressPending},
		OpenedAt:   m.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return View{}, ErrManagerClosed
	}
	m.evictLocked(v.OpenedAt)

	if m.resolver == nil {
		v.Address = Address{Status: AddressUnavailable, Error: geocode.ErrMissingToken.Error()}
		m.views[v.ID] = &entry{view: v, cancel: func() {}}
		return v, nil
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	m.views[v.ID] = &entry{view: v, cancel: cancel}

	// Add happens under mu so Close cannot start waiting before it.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		address, err := m.resolver.Reverse(ctx, person.Location.Coords)
		if err := m.complete(v.ID, address, err); err != nil {
			m.logger.Debug("dropped late address lookup", "view_id", v.ID, "person_id", person.ID)
		}
	}()

	return v, nil
}

// Get returns the current state of a view. An expired view is closed and
// reported as not found.
func (m *Manager) Get(viewID string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.views[viewID]
	if !ok {
		return View{}, ErrViewNotFound
	}
	if m.expired(e, m.now()) {
		m.dropLocked(viewID, e, "expired")
		return View{}, ErrViewNotFound
	}
	return e.view, nil
}

// CloseView closes a view and cancels its lookup.
func (m *Manager) CloseView(viewID string) error {
	m.mu.Lock()
	e, ok := m.views[viewID]
	delete(m.views, viewID)
	m.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	e.cancel()
	return nil
}

// Len returns the number of open views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Close cancels every lookup and waits for them to return. Open fails
// afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

// evictLocked drops expired views, then the oldest ones until a new view
// fits. Must be called with mu held.
func (m *Manager) evictLocked(now time.Time) {
	for id, e := range m.views {
		if m.expired(e, now) {
			m.dropLocked(id, e, "expired")
		}
	}
	for len(m.views) >= m.maxViews {
		var (
			oldestID string
			oldest   *entry
		)
		for id, e := range m.views {
			if oldest == nil || e.view.OpenedAt.Before(oldest.view.OpenedAt) {
				oldestID, oldest = id, e
			}
		}
		m.dropLocked(oldestID, oldest, "capacity")
	}
}

func (m *Manager) expired(e *entry, now time.Time) bool {
	return now.Sub(e.view.OpenedAt) >= m.ttl
}

func (m *Manager) dropLocked(id string, e *entry, reason string) {
	delete(m.views, id)
	e.cancel()
	m.logger.Debug("evicted detail view", "view_id", id, "person_id", e.view.PersonID, "reason", reason)
}

// complete applies a lookup result to its view. It returns ErrViewClosed when
// the view is gone.
func (m *Manager) complete(viewID, address string, err error) error {
	result := addressFrom(address, err)

	m.mu.Lock()
	e, ok := m.views[viewID]
	if ok {
		e.view.Address = result
	}
	m.mu.Unlock()

	if !ok {
		m.observe(OutcomeDiscarded)
		return ErrViewClosed
	}
	if result.Status == AddressUnavailable {
		m.logger.Warn("address lookup failed", "view_id", viewID, "error", err)
	}
	m.observe(string(result.Status))
	return nil
}

func (m *Manager) observe(outcome string) {
	if m.observer != nil {
		m.observer.ObserveLookup(outcome)
	}
}

func addressFrom(address string, err error) Address {
	switch {
	case err == nil:
		return Address{Status: AddressResolved, Text: address}
	case errors.Is(err, geocode.ErrAddressNotFound):
		return Address{Status: AddressNotFound}
	default:
		return Address{Status: AddressUnavailable, Error: err.Error()}
	}
}
