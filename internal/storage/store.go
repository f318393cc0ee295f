// Package storage defines the persistence collaborator for DYNAMIC agent
// records. The registry itself is in-memory; a Store only sees successful
// creates and deletes and hands the full set back at startup so the
// registry can be rehydrated.
//
// Implementations live in subpackages (sqlite, postgres). MemoryStore is
// the default and keeps nothing across restarts.
package storage

import (
	"context"

	"github.com/solvine-ai/solvine/internal/model"
)

// Store persists DYNAMIC agent records.
type Store interface {
	// SaveAgent inserts or replaces the record stored under rec.Name.
	SaveAgent(ctx context.Context, rec model.AgentRecord) error
	// DeleteAgent removes the record stored under name. Returns ErrNotFound
	// when no such record exists.
	DeleteAgent(ctx context.Context, name string) error
	// ListAgents returns every stored record ordered by creation time.
	ListAgents(ctx context.Context) ([]model.AgentRecord, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	// Kind names the backend ("memory", "sqlite", "postgres").
	Kind() string
}
