// Package archive stores simulation runs so they can be fetched again by id.
//
// Two backends implement [Store]:
//   - [MongoStore]: MongoDB, for the HTTP API and shared deployments
//   - [FileStore]: JSON files in a local directory, for the CLI
//
// [Open] picks the backend from a location string the same way
// cache.Open does for frame caches.
//
// # Usage
//
//	store, err := archive.Open(ctx, "mongodb://localhost:27017", "bubblemap")
//	if err != nil {
//	    return err
//	}
//	defer store.Close(ctx)
//
//	run, err := archive.NewRun(sim, archive.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	if err := store.Save(ctx, run); err != nil {
//	    return err
//	}
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/bubblemap/pkg/errors"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
)

// DefaultTTL is how long an archived run is kept.
const DefaultTTL = 30 * 24 * time.Hour

// DefaultListLimit caps [Store.List] when no limit is given.
const DefaultListLimit = 50

// stamp is the clock for new runs.
var stamp = time.Now

// Run is one archived simulation.
type Run struct {
	ID        string    `json:"id" bson:"_id"`
	Scene     string    `json:"scene" bson:"scene"`
	SceneHash string    `json:"scene_hash" bson:"scene_hash"`
	Steps     int       `json:"steps" bson:"steps"`
	Frames    int       `json:"frames" bson:"frames"`
	Converged bool      `json:"converged" bson:"converged"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// ExpiresAt is zero for runs that never expire.
	ExpiresAt time.Time `json:"expires_at,omitzero" bson:"expires_at,omitempty"`

	// Simulation is the JSON encoded [pipeline.Simulation]. List leaves
	// it empty.
	Simulation json.RawMessage `json:"simulation,omitempty" bson:"simulation,omitempty"`
}

// NewRun wraps sim in a run with a fresh id. A ttl of 0 keeps the run
// forever.
func NewRun(sim *pipeline.Simulation, ttl time.Duration) (*Run, error) {
	data, err := json.Marshal(sim)
	if err != nil {
		return nil, fmt.Errorf("marshal simulation: %w", err)
	}
	now := stamp().UTC().Truncate(time.Millisecond)
	run := &Run{
		ID:         uuid.NewString(),
		Scene:      sim.Scene,
		SceneHash:  sim.SceneHash,
		Steps:      sim.Stats.Steps,
		Frames:     len(sim.Frames),
		Converged:  sim.Stats.Converged,
		CreatedAt:  now,
		Simulation: data,
	}
	if ttl > 0 {
		run.ExpiresAt = now.Add(ttl)
	}
	return run, nil
}

// Decode returns the archived simulation.
func (r *Run) Decode() (*pipeline.Simulation, error) {
	if len(r.Simulation) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "run %s has no simulation data", r.ID)
	}
	var sim pipeline.Simulation
	if err := json.Unmarshal(r.Simulation, &sim); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode run %s", r.ID)
	}
	return &sim, nil
}

// IsExpired reports whether the run has outlived its TTL.
func (r *Run) IsExpired() bool {
	return !r.ExpiresAt.IsZero() && time.Now().After(r.ExpiresAt)
}

// Summary returns a copy of r without the simulation payload.
func (r *Run) Summary() *Run {
	s := *r
	s.Simulation = nil
	return &s
}

// ValidateRunID checks that id is a run identifier issued by [NewRun].
func ValidateRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(errors.ErrCodeInvalidID, "run id %q is not a valid uuid", id)
	}
	return nil
}

// ListOptions filters [Store.List].
type ListOptions struct {
	// Scene restricts the result to runs of one scene name.
	Scene string

	// Limit caps the number of runs; 0 selects DefaultListLimit.
	Limit int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store is the interface for run storage backends.
type Store interface {
	// Save stores a run, replacing any run with the same id.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by id. Missing and expired runs yield a
	// RUN_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns run summaries, newest first.
	List(ctx context.Context, opts ListOptions) ([]*Run, error)

	// Delete removes a run. Deleting a missing run yields RUN_NOT_FOUND.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired runs and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Open returns the store described by location: a mongodb:// or
// mongodb+srv:// URI selects MongoDB with the given database, anything
// else is taken as a directory for a [FileStore].
func Open(ctx context.Context, location, database string) (Store, error) {
	if strings.HasPrefix(location, "mongodb://") || strings.HasPrefix(location, "mongodb+srv://") {
		return Connect(ctx, location, database)
	}
	return NewFileStore(location)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeRunNotFound, "run %s not found", id)
}
