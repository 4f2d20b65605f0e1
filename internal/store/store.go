// Package store persists trips, the active trip of each chat and pending confirmations.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
)

// DefaultPendingTTL is how long a confirmation prompt stays answerable.
const DefaultPendingTTL = 5 * time.Minute

// Supported drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// TripStore loads and saves trip snapshots. Trip names are unique keys.
// Get and Delete return parsererror.ErrTripNotFound for unknown names.
type TripStore interface {
	LoadAll(ctx context.Context) ([]models.Trip, error)
	Save(ctx context.Context, trip models.Trip) error
	Get(ctx context.Context, name string) (models.Trip, error)
	// List returns trip names ordered by creation time.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// StateStore adds per-chat state to TripStore.
type StateStore interface {
	TripStore

	ActiveTrip(ctx context.Context, chatID string) (string, bool, error)
	SetActiveTrip(ctx context.Context, chatID, name string) error

	SetPending(ctx context.Context, pending models.PendingConfirmation) error
	// Pending returns the chat's confirmation unless it has expired; expired
	// confirmations are removed.
	Pending(ctx context.Context, chatID string) (models.PendingConfirmation, bool, error)
	ClearPending(ctx context.Context, chatID string) error
	// CleanupExpiredPending removes every expired confirmation and reports how many went.
	CleanupExpiredPending(ctx context.Context) (int, error)

	Close() error
}

// Options are shared by every store implementation.
type Options struct {
	PendingTTL time.Duration
	Clock      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PendingTTL <= 0 {
		o.PendingTTL = DefaultPendingTTL
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Config selects and configures a store.
type Config struct {
	Driver string
	Dir    string
	DSN    string
	Options
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger logging.Logger) (StateStore, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStore(cfg.Dir, cfg.Options, logger)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Options, logger)
	case DriverMemory:
		return NewMemoryStore(cfg.Options), nil
	default:
		return nil, fmt.Errorf("unknown state driver %q", cfg.Driver)
	}
}

// sortByCreation orders trips oldest first, breaking ties by name.
func sortByCreation(trips []models.Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		if trips[i].CreatedAt.Equal(trips[j].CreatedAt) {
			return trips[i].Name < trips[j].Name
		}
		return trips[i].CreatedAt.Before(trips[j].CreatedAt)
	})
}

func names(trips []models.Trip) []string {
	out := make([]string, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.Name)
	}
	return out
}
