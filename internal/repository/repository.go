package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/graph"
)

// ErrSnapshotNotFound is returned when a snapshot id is not in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMeta identifies an exported snapshot.
type SnapshotMeta struct {
	ID          string
	GeneratedAt time.Time
	Size        int
}

// SnapshotStats summarises what the store holds for one snapshot.
type SnapshotStats struct {
	SnapshotID  string    `json:"snapshotId"`
	GeneratedAt time.Time `json:"generatedAt"`
	People      int       `json:"people"`
	Cities      int       `json:"cities"`
	SpendLinks  int       `json:"spendLinks"`
	TotalSpent  float64   `json:"totalSpent"`
}

// Repository writes snapshots into the graph store and reads them back.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the export relies on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.Write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertSnapshot creates or updates the snapshot node.
func (r *Repository) UpsertSnapshot(ctx context.Context, meta SnapshotMeta) error {
	if meta.ID == "" {
		return errors.New("snapshot id is required")
	}
	params := map[string]any{
		"snapshotId":  meta.ID,
		"generatedAt": formatTime(meta.GeneratedAt),
		"size":        meta.Size,
	}
	if _, err := r.client.Write(ctx, upsertSnapshotCypher, params); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", meta.ID, err)
	}
	return nil
}

// UpsertPeople writes one batch of people of a snapshot, with their home city
// and per-city spend. The snapshot node must exist.
func (r *Repository) UpsertPeople(ctx context.Context, snapshotID string, people []domain.Person) (graph.Summary, error) {
	if snapshotID == "" {
		return graph.Summary{}, errors.New("snapshot id is required")
	}
	if len(people) == 0 {
		return graph.Summary{}, nil
	}

	rows := make([]map[string]any, 0, len(people))
	for _, p := range people {
		if p.ID == "" {
			return graph.Summary{}, errors.New("person id is required")
		}
		rows = append(rows, personRow(p))
	}

	summary, err := r.client.Write(ctx, upsertPeopleCypher, map[string]any{
		"snapshotId": snapshotID,
		"rows":       rows,
	})
	if err != nil {
		return graph.Summary{}, fmt.Errorf("upsert %d people of snapshot %s: %w", len(people), snapshotID, err)
	}
	return summary, nil
}

// SnapshotStats reads back the counts of one snapshot.
func (r *Repository) SnapshotStats(ctx context.Context, snapshotID string) (SnapshotStats, error) {
	records, err := r.client.Read(ctx, snapshotStatsCypher, map[string]any{"snapshotId": snapshotID})
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("snapshot stats query: %w", err)
	}
	if len(records) == 0 {
		return SnapshotStats{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return statsFromRecord(records[0]), nil
}

// ListSnapshots returns the most recent exported snapshots, newest first.
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotStats, error) {
	if limit <= 0 {
		limit = 20
	}
	records, err := r.client.Read(ctx, listSnapshotsCypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list snapshots query: %w", err)
	}
	out := make([]SnapshotStats, 0, len(records))
	for _, rec := range records {
		out = append(out, statsFromRecord(rec))
	}
	return out, nil
}

func personRow(p domain.Person) map[string]any {
	row := map[string]any{
		"id": p.ID,
		"props": map[string]any{
			"name":          p.Name,
			"risk":          p.Risk,
			"riskBand":      string(p.RiskBand()),
			"salary":        p.Salary,
			"accountNumber": p.AccountNumber,
			"dob":           p.DOB,
			"lat":           p.Location.Coords.Lat,
			"lng":           p.Location.Coords.Lng,
		},
		"city":  p.Location.City,
		"spend": []map[string]any{},
	}

	if ti := p.TransactionInsights; ti != nil {
		row["props"].(map[string]any)["totalSpent"] = ti.SpendingPatterns.TotalSpent
		spend := make([]map[string]any, 0, len(ti.LocationSpending))
		for _, ls := range ti.LocationSpending {
			spend = append(spend, map[string]any{
				"city":            ls.City,
				"country":         ls.Country,
				"amount":          ls.TotalSpent,
				"count":           ls.TransactionCount,
				"lastTransaction": formatTime(ls.LastTransaction),
			})
		}
		row["spend"] = spend
	}
	return row
}

func statsFromRecord(rec graph.Record) SnapshotStats {
	stats := SnapshotStats{
		SnapshotID: toString(rec["snapshotId"]),
		People:     toInt(rec["people"]),
		Cities:     toInt(rec["cities"]),
		SpendLinks: toInt(rec["spendLinks"]),
		TotalSpent: toFloat64(rec["totalSpent"]),
	}
	if ts := toTimePtr(rec["generatedAt"]); ts != nil {
		stats.GeneratedAt = *ts
	}
	return stats
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func toInt(val any) int {
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
	}
	return nil
}

var schemaCypher = []string{
	`CREATE CONSTRAINT snapshot_id IF NOT EXISTS FOR (s:Snapshot) REQUIRE s.snapshotId IS UNIQUE`,
	`CREATE CONSTRAINT person_key IF NOT EXISTS FOR (p:Person) REQUIRE (p.snapshotId, p.personId) IS UNIQUE`,
	`CREATE CONSTRAINT city_name IF NOT EXISTS FOR (c:City) REQUIRE c.name IS UNIQUE`,
}

const upsertSnapshotCypher = `
MERGE (s:Snapshot {snapshotId: $snapshotId})
SET s.generatedAt = $generatedAt,
	s.size = $size
RETURN s.snapshotId AS snapshotId
`

const upsertPeopleCypher = `
MATCH (s:Snapshot {snapshotId: $snapshotId})
UNWIND $rows AS row
MERGE (p:Person {snapshotId: $snapshotId, personId: row.id})
SET p += row.props
MERGE (s)-[:CONTAINS]->(p)
MERGE (home:City {name: row.city})
MERGE (p)-[:LIVES_IN]->(home)
FOREACH (sp IN row.spend |
	MERGE (c:City {name: sp.city})
	SET c.country = sp.country
	MERGE (p)-[si:SPENT_IN]->(c)
	SET si.amount = sp.amount,
		si.count = sp.count,
		si.lastTransaction = sp.lastTransaction
)
RETURN count(p) AS people
`

const snapshotStatsCypher = `
MATCH (s:Snapshot {snapshotId: $snapshotId})
RETURN s.snapshotId AS snapshotId,
	s.generatedAt AS generatedAt,
	COUNT { (s)-[:CONTAINS]->(:Person) } AS people,
	COUNT { MATCH (s)-[:CONTAINS]->(:Person)-[:LIVES_IN]->(c:City) RETURN DISTINCT c } AS cities,
	COUNT { (s)-[:CONTAINS]->(:Person)-[:SPENT_IN]->(:City) } AS spendLinks,
	reduce(total = 0.0, spent IN COLLECT {
		MATCH (s)-[:CONTAINS]->(p:Person) RETURN coalesce(p.totalSpent, 0.0)
	} | total + spent) AS totalSpent
`

const listSnapshotsCypher = `
MATCH (s:Snapshot)
RETURN s.snapshotId AS snapshotId,
	s.generatedAt AS generatedAt,
	COUNT { (s)-[:CONTAINS]->(:Person) } AS people,
	COUNT { MATCH (s)-[:CONTAINS]->(:Person)-[:LIVES_IN]->(c:City) RETURN DISTINCT c } AS cities,
	COUNT { (s)-[:CONTAINS]->(:Person)-[:SPENT_IN]->(:City) } AS spendLinks
ORDER BY s.generatedAt DESC
LIMIT $limit
`
