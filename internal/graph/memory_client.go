package graph

import (
	"context"
	"maps"
	"sync"
)

// Query is a cypher statement and its parameters as sent to the client.
type Query struct {
	Cypher string
	Params map[string]any
}

// MemoryClient records queries instead of running them. Reads return queued
// results in order; writes return a summary derived from the batch size.
type MemoryClient struct {
	mu           sync.Mutex
	writes       []Query
	reads        []Query
	readResults  [][]Record
	err          error
	connectivity error
}

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailWith makes every subsequent Write and Read return err.
func (m *MemoryClient) FailWith(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// FailConnectivity makes VerifyConnectivity return err.
func (m *MemoryClient) FailConnectivity(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// QueueRead queues the records returned by the next Read.
func (m *MemoryClient) QueueRead(records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, records)
}

func (m *MemoryClient) Write(_ context.Context, cypher string, params map[string]any) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Summary{}, m.err
	}
	m.writes = append(m.writes, Query{Cypher: cypher, Params: maps.Clone(params)})

	rows, _ := params["rows"].([]map[string]any)
	return Summary{NodesCreated: len(rows)}, nil
}

func (m *MemoryClient) Read(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.reads = append(m.reads, Query{Cypher: cypher, Params: maps.Clone(params)})

	if len(m.readResults) == 0 {
		return nil, nil
	}
	res := m.readResults[0]
	m.readResults = m.readResults[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Writes returns the write queries executed so far.
func (m *MemoryClient) Writes() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.writes...)
}

// Reads returns the read queries executed so far.
func (m *MemoryClient) Reads() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.reads...)
}
