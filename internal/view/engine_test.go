package view

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinDM/data-app/internal/domain"
)

func person(id, name string, risk, salary int, dob, city string) domain.Person {
	return domain.Person{
		ID:            id,
		Name:          name,
		Risk:          risk,
		Salary:        salary,
		DOB:           dob,
		AccountNumber: "0000" + id[1:],
		Location:      domain.Location{City: city},
	}
}

func fixture() []domain.Person {
	return []domain.Person{
		person("U1000", "Ada Lovelace", 10, 90000, "1955-06-01", "Oxford"),
		person("U1001", "Alan Turing", 50, 30000, "1965-03-20", "London"),
		person("U1002", "Grace Hopper", 90, 60000, "1975-09-09", "London"),
	}
}

func newTestEngine(t *testing.T, people []domain.Person) *Engine {
	t.Helper()
	e := NewEngine(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	e.SetRecords(NewSnapshot(people, time.Now()))
	return e
}

func ids(people []domain.Person) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.ID
	}
	return out
}

func TestDerive_NoControlsReturnsSnapshotOrder(t *testing.T) {
	e := newTestEngine(t, fixture())

	v := e.Derive()
	assert.Equal(t, []string{"U1000", "U1001", "U1002"}, ids(v.Rows))
	assert.Equal(t, 3, v.RowCount)
	assert.Equal(t, 3, v.TotalCount)
	assert.Equal(t, Columns, v.VisibleColumns)
	assert.Empty(t, v.SelectedRecords)
}

func TestRiskFilter_Medium(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetRiskFilter(domain.RiskMedium))
	v := e.Derive()
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 50, v.Rows[0].Risk)
}

func TestRiskFilter_BandsMatchThresholds(t *testing.T) {
	var people []domain.Person
	for risk := 0; risk <= 100; risk++ {
		people = append(people, person(fmt.Sprintf("U%04d", 1000+risk), "p", risk, 0, "1990-01-01", "X"))
	}
	e := newTestEngine(t, people)

	require.NoError(t, e.SetFilter("risk", []string{"Low"}))
	for _, p := range e.Derive().Rows {
		assert.Less(t, p.Risk, 33)
	}
	assert.Equal(t, 33, e.Derive().RowCount)

	require.NoError(t, e.SetFilter("risk", []any{"Medium", "High"}))
	v := e.Derive()
	assert.Equal(t, 68, v.RowCount)
	for _, p := range v.Rows {
		assert.GreaterOrEqual(t, p.Risk, 33)
	}
}

func TestSort_SalaryAscendingAndDescending(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetSort("salary", Ascending))
	v := e.Derive()
	assert.Equal(t, []int{30000, 60000, 90000}, []int{v.Rows[0].Salary, v.Rows[1].Salary, v.Rows[2].Salary})

	require.NoError(t, e.SetSort("salary", Descending))
	v = e.Derive()
	assert.Equal(t, []int{90000, 60000, 30000}, []int{v.Rows[0].Salary, v.Rows[1].Salary, v.Rows[2].Salary})

	require.NoError(t, e.SetSort("salary", DirectionNone))
	assert.Equal(t, []string{"U1000", "U1001", "U1002"}, ids(e.Derive().Rows))
}

func TestSort_LocationIsStable(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetSort("location", Ascending))
	assert.Equal(t, []string{"U1001", "U1002", "U1000"}, ids(e.Derive().Rows))
}

func TestSort_UnknownColumnLeavesStateUnchanged(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetSort("risk", Descending))

	err := e.SetSort("shoeSize", Ascending)
	require.ErrorIs(t, err, ErrUnknownColumn)
	assert.Equal(t, Sort{Column: ColumnRisk, Direction: Descending}, e.Derive().Sort)

	require.ErrorIs(t, e.SetSort("risk", Direction("sideways")), ErrInvalidSort)
}

func TestSort_DirectionIsNormalized(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetSort("risk", Direction("DESC")))
	assert.Equal(t, []string{"U1002", "U1001", "U1000"}, ids(e.Derive().Rows))
}

func TestFiltered_IgnoresPagination(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetPage(0, 1))
	require.NoError(t, e.SetCityFilter("London"))
	require.NoError(t, e.SetSort("salary", Descending))

	assert.Len(t, e.Derive().Rows, 1)
	assert.Equal(t, []string{"U1002", "U1001"}, ids(e.Filtered()))
}

func TestDOBFilter(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetDOBFilter(DateRange{From: "1960-01-01", To: "1970-12-31"}))
	v := e.Derive()
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "1965-03-20", v.Rows[0].DOB)

	require.NoError(t, e.ClearFilter("dob"))
	assert.Equal(t, 3, e.Derive().RowCount)
}

func TestDOBFilter_OpenBounds(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetFilter("dob", map[string]any{"from": "1965-03-20"}))
	assert.Equal(t, []string{"U1001", "U1002"}, ids(e.Derive().Rows))

	require.NoError(t, e.SetFilter("dob", map[string]any{"to": "1965-03-20"}))
	assert.Equal(t, []string{"U1000", "U1001"}, ids(e.Derive().Rows))

	require.ErrorIs(t, e.SetFilter("dob", map[string]any{"from": "1965-3-20"}), ErrInvalidFilter)
	assert.Equal(t, []string{"U1000", "U1001"}, ids(e.Derive().Rows))
}

func TestNameFilter_CaseInsensitiveSubstring(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetNameFilter("tUR"))
	assert.Equal(t, []string{"U1001"}, ids(e.Derive().Rows))

	require.NoError(t, e.SetNameFilter(""))
	assert.Equal(t, 3, e.Derive().RowCount)
}

func TestNameFilter_CollapsesWhitespace(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetNameFilter("  grace   HOPPER "))
	assert.Equal(t, []string{"U1002"}, ids(e.Derive().Rows))
	assert.Equal(t, "grace HOPPER", e.Derive().Filters.Name)

	require.NoError(t, e.SetCityFilter(" London ", "", "London"))
	assert.Equal(t, []string{"London"}, e.Derive().Filters.Cities)
}

func TestFilters_CombineWithAnd(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetCityFilter("London"))
	require.NoError(t, e.SetRiskFilter(domain.RiskHigh))
	assert.Equal(t, []string{"U1002"}, ids(e.Derive().Rows))

	e.ResetFilters()
	assert.Equal(t, []string{"U1000", "U1001", "U1002"}, ids(e.Derive().Rows))
}

func TestSetFilter_RejectsBadInput(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetNameFilter("a"))

	require.ErrorIs(t, e.SetFilter("nope", "x"), ErrUnknownColumn)
	require.ErrorIs(t, e.SetFilter("salary", 10), ErrInvalidFilter)
	require.ErrorIs(t, e.SetFilter("name", 10), ErrInvalidFilter)
	require.ErrorIs(t, e.SetFilter("risk", []string{"Extreme"}), ErrInvalidFilter)
	assert.Equal(t, "a", e.Derive().Filters.Name)
}

func TestFacets_ReflectAllFilters(t *testing.T) {
	e := newTestEngine(t, fixture())

	v := e.Derive()
	assert.Equal(t, map[domain.RiskBand]int{domain.RiskLow: 1, domain.RiskMedium: 1, domain.RiskHigh: 1}, v.Facets.Risk)
	assert.Equal(t, map[string]int{"London": 2, "Oxford": 1}, v.Facets.City)

	require.NoError(t, e.SetRiskFilter(domain.RiskLow))
	v = e.Derive()
	assert.Equal(t, map[domain.RiskBand]int{domain.RiskLow: 1, domain.RiskMedium: 0, domain.RiskHigh: 0}, v.Facets.Risk)
	assert.Equal(t, map[string]int{"Oxford": 1}, v.Facets.City)
}

func TestSelection_SelectAllThenToggleOne(t *testing.T) {
	e := newTestEngine(t, fixture())

	e.SelectAll(true)
	assert.Equal(t, 3, e.Derive().SelectedCount)

	found, selected := e.ToggleSelection("U1001")
	assert.True(t, found)
	assert.False(t, selected)
	v := e.Derive()
	assert.Equal(t, 2, v.SelectedCount)
	assert.Equal(t, []string{"U1000", "U1002"}, ids(v.SelectedRecords))

	found, _ = e.ToggleSelection("U9999")
	assert.False(t, found)
	assert.Equal(t, 2, e.Derive().SelectedCount)
}

func TestSelection_ToggleRowHiddenByFilter(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetRiskFilter(domain.RiskLow))

	found, selected := e.ToggleSelection("U1002")
	require.True(t, found)
	assert.True(t, selected)
	assert.Zero(t, e.Derive().SelectedCount, "selected row is outside the filter")

	found, selected = e.ToggleSelection("U1002")
	require.True(t, found)
	assert.False(t, selected)

	e.ResetFilters()
	assert.Zero(t, e.Derive().SelectedCount)
}

func TestSelection_AllMeansFilteredRowsAcrossPages(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetPage(0, 1))
	require.NoError(t, e.SetCityFilter("London"))

	e.SelectAll(true)
	v := e.Derive()
	assert.Len(t, v.Rows, 1)
	assert.Equal(t, []string{"U1001", "U1002"}, ids(v.SelectedRecords))

	e.ResetFilters()
	v = e.Derive()
	assert.Equal(t, 2, v.SelectedCount)
	assert.LessOrEqual(t, v.SelectedCount, v.RowCount)

	require.NoError(t, e.SetNameFilter("Grace"))
	assert.Equal(t, 1, e.Derive().SelectedCount)

	e.ResetFilters()
	e.ClearSelection()
	assert.Zero(t, e.Derive().SelectedCount)
}

func TestSetRecords_ClearsSelectionKeepsControls(t *testing.T) {
	e := newTestEngine(t, fixture())
	require.NoError(t, e.SetSort("salary", Ascending))
	require.NoError(t, e.SetColumnVisible("accountNumber", false))
	require.NoError(t, e.SetCityFilter("London"))
	e.SetValuesHidden(true)
	_, selected := e.ToggleSelection("U1001")
	require.True(t, selected)
	before := e.Derive()

	e.SetRecords(NewSnapshot(fixture(), time.Now()))
	v := e.Derive()
	assert.NotEqual(t, before.SnapshotID, v.SnapshotID)
	assert.Empty(t, v.SelectedRecords)
	assert.Equal(t, Sort{Column: ColumnSalary, Direction: Ascending}, v.Sort)
	assert.Equal(t, []string{"London"}, v.Filters.Cities)
	assert.NotContains(t, v.VisibleColumns, ColumnAccountNumber)
	assert.True(t, v.ValuesHidden)
	assert.Equal(t, []string{"U1001", "U1002"}, ids(v.Rows))
}

func TestSetColumnVisible(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.ErrorIs(t, e.SetColumnVisible("bio", false), ErrUnknownColumn)
	require.NoError(t, e.SetColumnVisible("salary", false))
	v := e.Derive()
	assert.NotContains(t, v.VisibleColumns, ColumnSalary)
	assert.Equal(t, 3, v.RowCount)

	require.NoError(t, e.SetColumnVisible("salary", true))
	assert.Equal(t, Columns, e.Derive().VisibleColumns)
}

func TestPagination(t *testing.T) {
	e := newTestEngine(t, fixture())

	require.NoError(t, e.SetPage(1, 2))
	v := e.Derive()
	assert.Equal(t, 2, v.PageCount)
	assert.Equal(t, 1, v.PageIndex)
	assert.Equal(t, []string{"U1002"}, ids(v.Rows))

	require.NoError(t, e.SetPage(9, 0))
	v = e.Derive()
	assert.Equal(t, 1, v.PageIndex, "index clamps to the last page")
	assert.Equal(t, 2, v.PageSize)

	require.NoError(t, e.SetNameFilter("a"))
	assert.Zero(t, e.Derive().PageIndex)

	require.ErrorIs(t, e.SetPage(-1, 0), ErrInvalidPage)
}

func TestPagination_EmptySnapshot(t *testing.T) {
	e := newTestEngine(t, nil)

	v := e.Derive()
	assert.Zero(t, v.RowCount)
	assert.Zero(t, v.PageCount)
	assert.Zero(t, v.PageIndex)
	assert.Empty(t, v.Rows)
}

func TestLookup(t *testing.T) {
	e := newTestEngine(t, fixture())

	p, ok := e.Lookup("U1002")
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", p.Name)

	_, ok = e.Lookup("U4242")
	assert.False(t, ok)
}

func TestLookupInSnapshot(t *testing.T) {
	e := newTestEngine(t, fixture())

	p, id, ok := e.LookupInSnapshot("U1002")
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", p.Name)
	assert.Equal(t, e.Snapshot().ID, id)

	e.SetRecords(NewSnapshot(fixture(), time.Now()))
	_, next, ok := e.LookupInSnapshot("U1002")
	require.True(t, ok)
	assert.NotEqual(t, id, next)
}

func TestVersion_IncreasesOnEveryChange(t *testing.T) {
	e := newTestEngine(t, fixture())
	start := e.Derive().Version

	require.NoError(t, e.SetSort("risk", Descending))
	assert.Equal(t, start+1, e.Derive().Version)

	_ = e.SetSort("nope", Ascending)
	e.ToggleSelection("U9999")
	assert.Equal(t, start+1, e.Derive().Version, "rejected and no-op controls keep the version")

	e.SetValuesHidden(true)
	assert.Equal(t, start+2, e.Derive().Version)
}

func TestSubscribe_ConcurrentMutationsCarryDistinctVersions(t *testing.T) {
	e := newTestEngine(t, fixture())

	var (
		mu   sync.Mutex
		seen = make(map[uint64]int)
	)
	unsubscribe := e.Subscribe(func(v View) {
		mu.Lock()
		seen[v.Version]++
		mu.Unlock()
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.SetValuesHidden(i%2 == 0)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 20)
	for version, n := range seen {
		assert.Equal(t, 1, n, "version %d delivered twice", version)
	}
	assert.Equal(t, e.Derive().Version, maxKey(seen))
}

func maxKey(m map[uint64]int) uint64 {
	var out uint64
	for k := range m {
		out = max(out, k)
	}
	return out
}

func TestSubscribe(t *testing.T) {
	e := newTestEngine(t, fixture())

	var got []View
	unsubscribe := e.Subscribe(func(v View) { got = append(got, v) })

	require.NoError(t, e.SetRiskFilter(domain.RiskHigh))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].RowCount)

	_ = e.SetSort("nope", Ascending)
	assert.Len(t, got, 1, "rejected input does not notify")

	unsubscribe()
	e.ResetFilters()
	assert.Len(t, got, 1)
}

type recordingObserver struct {
	rows []int
}

func (o *recordingObserver) ObserveDerive(_ time.Duration, rowCount int) {
	o.rows = append(o.rows, rowCount)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(Options{Observer: obs, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	e.SetRecords(NewSnapshot(fixture(), time.Now()))

	e.Derive()
	assert.Equal(t, []int{3}, obs.rows)
}
