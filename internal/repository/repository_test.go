package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/graph"
)

func samplePerson() domain.Person {
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Person{
		ID:            "U1000",
		Name:          "Ada Lovelace",
		Risk:          72,
		Salary:        64000,
		AccountNumber: "12345678",
		DOB:           "1990-12-10",
		Location:      domain.Location{City: "Reading", Coords: domain.Coordinates{Lat: 51.45, Lng: -0.97}},
		TransactionInsights: &domain.TransactionInsights{
			SpendingPatterns: domain.SpendingPatterns{TotalSpent: 812.5},
			LocationSpending: []domain.LocationSpending{
				{City: "Lyon", Country: "France", TotalSpent: 120.25, TransactionCount: 2, LastTransaction: last},
			},
		},
	}
}

func TestRepository_UpsertSnapshot(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	at := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertSnapshot(context.Background(), SnapshotMeta{ID: "01HV", GeneratedAt: at, Size: 100}))

	calls := mem.Writes()
	require.Len(t, calls, 1)
	assert.True(t, strings.Contains(calls[0].Cypher, "MERGE (s:Snapshot"))
	assert.Equal(t, "01HV", calls[0].Params["snapshotId"])
	assert.Equal(t, "2024-04-20T12:00:00Z", calls[0].Params["generatedAt"])
	assert.Equal(t, 100, calls[0].Params["size"])

	require.Error(t, repo.UpsertSnapshot(context.Background(), SnapshotMeta{}))
}

func TestRepository_UpsertPeople(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	summary, err := repo.UpsertPeople(context.Background(), "01HV", []domain.Person{samplePerson()})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NodesCreated)

	calls := mem.Writes()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Cypher, "[:LIVES_IN]")
	assert.Contains(t, calls[0].Cypher, "[si:SPENT_IN]")

	rows, ok := calls[0].Params["rows"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "U1000", row["id"])
	assert.Equal(t, "Reading", row["city"])

	props := row["props"].(map[string]any)
	assert.Equal(t, "High", props["riskBand"])
	assert.Equal(t, 812.5, props["totalSpent"])

	spend := row["spend"].([]map[string]any)
	require.Len(t, spend, 1)
	assert.Equal(t, "Lyon", spend[0]["city"])
	assert.Equal(t, 2, spend[0]["count"])
	assert.Equal(t, "2024-03-01T10:00:00Z", spend[0]["lastTransaction"])
}

func TestRepository_UpsertPeople_Validation(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	_, err := repo.UpsertPeople(context.Background(), "", []domain.Person{samplePerson()})
	require.Error(t, err)

	_, err = repo.UpsertPeople(context.Background(), "01HV", []domain.Person{{Name: "no id"}})
	require.Error(t, err)

	summary, err := repo.UpsertPeople(context.Background(), "01HV", nil)
	require.NoError(t, err)
	assert.Zero(t, summary)
	assert.Empty(t, mem.Writes())
}

func TestRepository_UpsertPeople_PropagatesError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := New(graph.NewMemoryClient().FailWith(boom))

	_, err := repo.UpsertPeople(context.Background(), "01HV", []domain.Person{samplePerson()})
	require.ErrorIs(t, err, boom)
}

func TestRepository_SnapshotStats(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.QueueRead(graph.Record{
		"snapshotId":  "01HV",
		"generatedAt": "2024-04-20T12:00:00Z",
		"people":      int64(100),
		"cities":      int64(87),
		"spendLinks":  int64(1450),
		"totalSpent":  51234.75,
	})
	repo := New(mem)

	stats, err := repo.SnapshotStats(context.Background(), "01HV")
	require.NoError(t, err)
	assert.Equal(t, SnapshotStats{
		SnapshotID:  "01HV",
		GeneratedAt: time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC),
		People:      100,
		Cities:      87,
		SpendLinks:  1450,
		TotalSpent:  51234.75,
	}, stats)
	assert.Equal(t, "01HV", mem.Reads()[0].Params["snapshotId"])
}

func TestRepository_SnapshotStats_NotFound(t *testing.T) {
	repo := New(graph.NewMemoryClient())

	_, err := repo.SnapshotStats(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestRepository_ListSnapshots(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.QueueRead(
		graph.Record{"snapshotId": "b", "people": int64(2)},
		graph.Record{"snapshotId": "a", "people": int64(1)},
	)
	repo := New(mem)

	list, err := repo.ListSnapshots(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].SnapshotID)
	assert.Equal(t, 20, mem.Reads()[0].Params["limit"])
}

func TestRepository_EnsureSchema(t *testing.T) {
	mem := graph.NewMemoryClient()
	require.NoError(t, New(mem).EnsureSchema(context.Background()))
	assert.Len(t, mem.Writes(), len(schemaCypher))
}
