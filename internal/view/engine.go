package view

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MartinDM/data-app/internal/domain"
)

var (
	// ErrUnknownColumn is returned for a column name the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidFilter is returned for a filter value of the wrong shape.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidSort is returned for an unknown sort direction.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidPage is returned for a negative page index or size.
	ErrInvalidPage = errors.New("invalid page")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Observer receives timing for every derive.
type Observer interface {
	ObserveDerive(elapsed time.Duration, rowCount int)
}

// Options configures an Engine.
type Options struct {
	PageSize int
	Logger   *slog.Logger
	Observer Observer
}

// Facets holds per-value row counts of the filtered set.
type Facets struct {
	Risk map[domain.RiskBand]int `json:"risk"`
	City map[string]int          `json:"location"`
}

// View is the derived state handed to the presentation layer.
type View struct {
	Version         uint64          `json:"version"`
	SnapshotID      ulid.ULID       `json:"snapshotId"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	Rows            []domain.Person `json:"rows"`
	RowCount        int             `json:"rowCount"`
	TotalCount      int             `json:"totalCount"`
	PageIndex       int             `json:"pageIndex"`
	PageSize        int             `json:"pageSize"`
	PageCount       int             `json:"pageCount"`
	Facets          Facets          `json:"facets"`
	SelectedRecords []domain.Person `json:"selectedRecords"`
	SelectedCount   int             `json:"selectedCount"`
	VisibleColumns  []Column        `json:"visibleColumns"`
	Sort            Sort            `json:"sort"`
	Filters         Filters         `json:"filters"`
	ValuesHidden    bool            `json:"valuesHidden"`
}

// Engine owns a record snapshot and the table controls, and derives the
// rendered view from them. It is safe for concurrent use; subscribers are
// called after every successful mutation, outside the lock. Concurrent
// mutations may reach a subscriber out of order, so consumers compare
// View.Version and keep the highest.
type Engine struct {
	mu sync.RWMutex

	version      uint64
	snapshot     Snapshot
	filters      Filters
	sort         Sort
	hidden       map[Column]bool
	selection    map[string]struct{}
	pageIndex    int
	pageSize     int
	valuesHidden bool

	subMu       sync.Mutex
	subscribers map[int]func(View)
	nextSub     int

	logger   *slog.Logger
	observer Observer
}

// NewEngine returns an engine holding an empty snapshot.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{
		snapshot:    NewSnapshot(nil, time.Now()),
		hidden:      make(map[Column]bool),
		selection:   make(map[string]struct{}),
		pageSize:    min(pageSize, MaxPageSize),
		subscribers: make(map[int]func(View)),
		logger:      logger.With("component", "view"),
		observer:    opts.Observer,
	}
}

// Subscribe registers fn to receive the derived view after each change and
// returns a function that removes it.
func (e *Engine) Subscribe(fn func(View)) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subscribers, id)
		e.subMu.Unlock()
	}
}

// SetRecords replaces the snapshot. Selection is cleared and the page index
// reset; filters, sort, column visibility and masking are kept.
func (e *Engine) SetRecords(s Snapshot) {
	e.mutate(func() error {
		e.snapshot = s
		clear(e.selection)
		e.pageIndex = 0
		return nil
	})
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Lookup finds a person in the current snapshot.
func (e *Engine) Lookup(id string) (domain.Person, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot.Lookup(id)
}

// LookupInSnapshot finds a person and reports the snapshot it was read from.
func (e *Engine) LookupInSnapshot(id string) (domain.Person, ulid.ULID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.snapshot.Lookup(id)
	return p, e.snapshot.ID, ok
}

// SetFilter sets the filter of a column. Name takes a string, risk a list of
// band labels, location a list of cities and dob a DateRange.
func (e *Engine) SetFilter(column string, value any) error {
	return e.mutate(func() error {
		c, err := e.filterColumn(column)
		if err != nil {
			return err
		}
		next, err := e.filters.with(c, value)
		if err != nil {
			return err
		}
		e.filters = next
		e.pageIndex = 0
		return nil
	})
}

func (e *Engine) SetNameFilter(name string) error {
	return e.SetFilter(string(ColumnName), name)
}

func (e *Engine) SetRiskFilter(bands ...domain.RiskBand) error {
	return e.SetFilter(string(ColumnRisk), bands)
}

func (e *Engine) SetCityFilter(cities ...string) error {
	return e.SetFilter(string(ColumnLocation), cities)
}

func (e *Engine) SetDOBFilter(r DateRange) error {
	return e.SetFilter(string(ColumnDOB), r)
}

// ClearFilter removes the filter of one column.
func (e *Engine) ClearFilter(column string) error {
	return e.mutate(func() error {
		c, err := e.filterColumn(column)
		if err != nil {
			return err
		}
		e.filters = e.filters.without(c)
		e.pageIndex = 0
		return nil
	})
}

// ResetFilters removes every filter.
func (e *Engine) ResetFilters() {
	e.mutate(func() error {
		e.filters = Filters{}
		e.pageIndex = 0
		return nil
	})
}

// SetSort replaces the active sort. DirectionNone restores snapshot order.
func (e *Engine) SetSort(column string, direction Direction) error {
	return e.mutate(func() error {
		if direction == DirectionNone && column == "" {
			e.sort = Sort{}
			e.pageIndex = 0
			return nil
		}
		c, ok := ParseColumn(column)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
		}
		d, ok := ParseDirection(string(direction))
		if !ok {
			return fmt.Errorf("%w: direction %q", ErrInvalidSort, direction)
		}
		if d == DirectionNone {
			e.sort = Sort{}
		} else {
			e.sort = Sort{Column: c, Direction: d}
		}
		e.pageIndex = 0
		return nil
	})
}

// ToggleSelection flips the selection of id and returns the new state. Ids
// outside the snapshot are ignored and reported as not found. The state is
// independent of the filters: a row hidden by a filter can still be selected.
func (e *Engine) ToggleSelection(id string) (found, selected bool) {
	e.mutate(func() error {
		if !e.snapshot.has(id) {
			return errNoChange
		}
		found = true
		if _, ok := e.selection[id]; ok {
			delete(e.selection, id)
		} else {
			e.selection[id] = struct{}{}
			selected = true
		}
		return nil
	})
	return found, selected
}

// SelectAll selects or deselects every row passing the filters, across all
// pages.
func (e *Engine) SelectAll(selected bool) {
	e.mutate(func() error {
		for i := range e.snapshot.People {
			p := &e.snapshot.People[i]
			if !e.filters.Match(p) {
				continue
			}
			if selected {
				e.selection[p.ID] = struct{}{}
			} else {
				delete(e.selection, p.ID)
			}
		}
		return nil
	})
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.mutate(func() error {
		clear(e.selection)
		return nil
	})
}

// SetColumnVisible shows or hides a column. Visibility never affects rows.
func (e *Engine) SetColumnVisible(column string, visible bool) error {
	return e.mutate(func() error {
		c, ok := ParseColumn(column)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
		}
		if visible {
			delete(e.hidden, c)
		} else {
			e.hidden[c] = true
		}
		return nil
	})
}

// SetPage moves to a page. A zero size keeps the current page size.
func (e *Engine) SetPage(index, size int) error {
	return e.mutate(func() error {
		if index < 0 || size < 0 {
			return fmt.Errorf("%w: index %d size %d", ErrInvalidPage, index, size)
		}
		if size > 0 {
			e.pageSize = min(size, MaxPageSize)
		}
		e.pageIndex = index
		return nil
	})
}

// SetValuesHidden toggles masking of sensitive values in the presentation.
func (e *Engine) SetValuesHidden(hidden bool) {
	e.mutate(func() error {
		e.valuesHidden = hidden
		return nil
	})
}

// Derive computes the current view.
func (e *Engine) Derive() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.derive()
}

// Filtered returns every row passing the filters in display order, ignoring
// pagination.
func (e *Engine) Filtered() []domain.Person {
	e.mu.RLock()
	defer e.mu.RUnlock()
	filtered := e.filtered()
	out := make([]domain.Person, 0, len(filtered))
	for _, p := range filtered {
		out = append(out, *p)
	}
	return out
}

// ValuesHidden reports whether sensitive values are masked.
func (e *Engine) ValuesHidden() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.valuesHidden
}

// errNoChange aborts a mutation without an error and without notifying.
var errNoChange = errors.New("no change")

func (e *Engine) mutate(apply func() error) error {
	e.mu.Lock()
	if err := apply(); err != nil {
		e.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		e.logger.Warn("ignored view control", "error", err)
		return err
	}
	e.version++
	subs := e.listeners()
	if len(subs) == 0 {
		e.mu.Unlock()
		return nil
	}
	v := e.derive()
	e.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return nil
}

func (e *Engine) listeners() []func(View) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	subs := make([]func(View), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (e *Engine) filterColumn(name string) (Column, error) {
	c, ok := ParseColumn(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if !c.Filterable() {
		return "", fmt.Errorf("%w: %s is not filterable", ErrInvalidFilter, c)
	}
	return c, nil
}

// filtered must be called with mu held.
func (e *Engine) filtered() []*domain.Person {
	people := e.snapshot.People
	filtered := make([]*domain.Person, 0, len(people))
	for i := range people {
		if e.filters.Match(&people[i]) {
			filtered = append(filtered, &people[i])
		}
	}

	if e.sort.Active() {
		less := compareBy(e.sort.Column)
		if e.sort.Direction == Descending {
			asc := less
			less = func(a, b *domain.Person) int { return asc(b, a) }
		}
		slices.SortStableFunc(filtered, less)
	}
	return filtered
}

// derive must be called with mu held.
func (e *Engine) derive() View {
	start := time.Now()

	people := e.snapshot.People
	filtered := e.filtered()

	facets := Facets{
		Risk: make(map[domain.RiskBand]int, len(domain.RiskBands)),
		City: make(map[string]int),
	}
	for _, band := range domain.RiskBands {
		facets.Risk[band] = 0
	}

	selected := make([]domain.Person, 0, len(e.selection))
	for _, p := range filtered {
		facets.Risk[p.RiskBand()]++
		facets.City[p.Location.City]++
		if _, ok := e.selection[p.ID]; ok {
			selected = append(selected, *p)
		}
	}
	// selection is reported in snapshot order, whatever the sort
	slices.SortFunc(selected, func(a, b domain.Person) int {
		return e.snapshot.index[a.ID] - e.snapshot.index[b.ID]
	})

	rowCount := len(filtered)
	pageCount := (rowCount + e.pageSize - 1) / e.pageSize
	pageIndex := min(e.pageIndex, max(pageCount-1, 0))
	lo := min(pageIndex*e.pageSize, rowCount)
	hi := min(lo+e.pageSize, rowCount)

	rows := make([]domain.Person, 0, hi-lo)
	for _, p := range filtered[lo:hi] {
		rows = append(rows, *p)
	}

	visible := make([]Column, 0, len(Columns))
	for _, c := range Columns {
		if !e.hidden[c] {
			visible = append(visible, c)
		}
	}

	v := View{
		Version:         e.version,
		SnapshotID:      e.snapshot.ID,
		GeneratedAt:     e.snapshot.GeneratedAt,
		Rows:            rows,
		RowCount:        rowCount,
		TotalCount:      len(people),
		PageIndex:       pageIndex,
		PageSize:        e.pageSize,
		PageCount:       pageCount,
		Facets:          facets,
		SelectedRecords: selected,
		SelectedCount:   len(selected),
		VisibleColumns:  visible,
		Sort:            e.sort,
		Filters:         e.filters.clone(),
		ValuesHidden:    e.valuesHidden,
	}

	if e.observer != nil {
		e.observer.ObserveDerive(time.Since(start), rowCount)
	}
	return v
}
