package view

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/MartinDM/data-app/internal/domain"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// DateRange is an inclusive range over ISO dates. An empty bound is
// unbounded on that side.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

func (r DateRange) contains(dob string) bool {
	if r.From != "" && dob < r.From {
		return false
	}
	if r.To != "" && dob > r.To {
		return false
	}
	return true
}

func (r DateRange) validate() error {
	for _, bound := range []string{r.From, r.To} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, bound); err != nil || len(bound) != len(time.DateOnly) {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidFilter, bound)
		}
	}
	return nil
}

// Filters holds the independent column filters. They combine with AND and an
// empty value matches everything.
type Filters struct {
	Name   string            `json:"name,omitempty"`
	Risk   []domain.RiskBand `json:"risk,omitempty"`
	Cities []string          `json:"location,omitempty"`
	DOB    DateRange         `json:"dob"`
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f.Name != "" || len(f.Risk) > 0 || len(f.Cities) > 0 || !f.DOB.IsZero()
}

// Match applies every filter to p.
func (f Filters) Match(p *domain.Person) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if len(f.Risk) > 0 && !slices.Contains(f.Risk, p.RiskBand()) {
		return false
	}
	if len(f.Cities) > 0 && !slices.Contains(f.Cities, p.Location.City) {
		return false
	}
	return f.DOB.contains(p.DOB)
}

func (f Filters) clone() Filters {
	f.Risk = slices.Clone(f.Risk)
	f.Cities = slices.Clone(f.Cities)
	return f
}

// with returns a copy of f where column holds value. value may be a typed Go
// value or the generic form produced by decoding JSON into any.
func (f Filters) with(column Column, value any) (Filters, error) {
	next := f.clone()
	switch column {
	case ColumnName:
		s, ok := value.(string)
		if !ok {
			return f, fmt.Errorf("%w: name expects a string, got %T", ErrInvalidFilter, value)
		}
		next.Name = sanitizeString(s)
	case ColumnRisk:
		labels, err := stringList(value)
		if err != nil {
			return f, err
		}
		bands := make([]domain.RiskBand, 0, len(labels))
		for _, label := range labels {
			band, ok := domain.ParseRiskBand(label)
			if !ok {
				return f, fmt.Errorf("%w: unknown risk band %q", ErrInvalidFilter, label)
			}
			if !slices.Contains(bands, band) {
				bands = append(bands, band)
			}
		}
		next.Risk = bands
	case ColumnLocation:
		cities, err := stringList(value)
		if err != nil {
			return f, err
		}
		clean := make([]string, 0, len(cities))
		for _, c := range cities {
			if c = sanitizeString(c); c != "" {
				clean = append(clean, c)
			}
		}
		slices.Sort(clean)
		next.Cities = slices.Compact(clean)
	case ColumnDOB:
		r, err := dateRange(value)
		if err != nil {
			return f, err
		}
		if err := r.validate(); err != nil {
			return f, err
		}
		next.DOB = r
	default:
		return f, fmt.Errorf("%w: %s is not filterable", ErrInvalidFilter, column)
	}
	return next, nil
}

func (f Filters) without(column Column) Filters {
	next := f.clone()
	switch column {
	case ColumnName:
		next.Name = ""
	case ColumnRisk:
		next.Risk = nil
	case ColumnLocation:
		next.Cities = nil
	case ColumnDOB:
		next.DOB = DateRange{}
	}
	return next
}

func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []domain.RiskBand:
		out := make([]string, len(v))
		for i, b := range v {
			out[i] = string(b)
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected a list of strings, got %T element", ErrInvalidFilter, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected a list of strings, got %T", ErrInvalidFilter, value)
}

func dateRange(value any) (DateRange, error) {
	switch v := value.(type) {
	case DateRange:
		return v, nil
	case map[string]any:
		var r DateRange
		for key, raw := range v {
			s, ok := raw.(string)
			if !ok && raw != nil {
				return DateRange{}, fmt.Errorf("%w: dob.%s expects a string", ErrInvalidFilter, key)
			}
			switch key {
			case "from":
				r.From = s
			case "to":
				r.To = s
			default:
				return DateRange{}, fmt.Errorf("%w: unknown dob bound %q", ErrInvalidFilter, key)
			}
		}
		return r, nil
	}
	return DateRange{}, fmt.Errorf("%w: dob expects {from, to}, got %T", ErrInvalidFilter, value)
}
