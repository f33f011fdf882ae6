package view

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MartinDM/data-app/internal/domain"
)

// Snapshot is one immutable generation of the record set. Row selection is
// scoped to a snapshot ID, so the same person id in a later snapshot is a
// different entity.
type Snapshot struct {
	ID          ulid.ULID
	GeneratedAt time.Time
	People      []domain.Person

	index map[string]int
}

// NewSnapshot wraps people in a snapshot with a fresh identity. The slice is
// owned by the snapshot afterwards and must not be modified.
func NewSnapshot(people []domain.Person, generatedAt time.Time) Snapshot {
	index := make(map[string]int, len(people))
	for i, p := range people {
		index[p.ID] = i
	}
	return Snapshot{
		ID:          ulid.Make(),
		GeneratedAt: generatedAt.UTC(),
		People:      people,
		index:       index,
	}
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.People)
}

// Lookup finds a record by id.
func (s Snapshot) Lookup(id string) (domain.Person, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Person{}, false
	}
	return s.People[i], true
}

func (s Snapshot) has(id string) bool {
	_, ok := s.index[id]
	return ok
}
