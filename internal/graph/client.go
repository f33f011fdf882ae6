package graph

import (
	"context"
	"errors"
)

// Client is the query surface the snapshot repository needs from a graph
// store.
type Client interface {
	Write(ctx context.Context, cypher string, params map[string]any) (Summary, error)
	Read(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Record is one result row keyed by column name.
type Record map[string]any

// Summary reports what a write changed.
type Summary struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
}

// Add accumulates another summary.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		NodesCreated:         s.NodesCreated + o.NodesCreated,
		RelationshipsCreated: s.RelationshipsCreated + o.RelationshipsCreated,
		PropertiesSet:        s.PropertiesSet + o.PropertiesSet,
	}
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
