package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/stats"
)

// ErrSnapshotNotFound is returned when no snapshot exists for an entity.
var ErrSnapshotNotFound = errors.New("stat snapshot not found")

// SnapshotRepository persists ledger snapshots: core attributes, tracked stat
// running totals, and the active modifier list with remaining durations,
// stored verbatim. Loading never re-runs elapsed decay.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save upserts the snapshot for entityID.
//
// Precondition: entityID must be non-empty.
// Postcondition: Load(entityID) returns an equal snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, entityID string, s stats.Snapshot) error {
	if entityID == "" {
		return fmt.Errorf("saving snapshot: entity ID must not be empty")
	}
	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}
	tracked, err := json.Marshal(s.Tracked)
	if err != nil {
		return fmt.Errorf("encoding tracked stats: %w", err)
	}
	mods, err := json.Marshal(s.Modifiers)
	if err != nil {
		return fmt.Errorf("encoding modifiers: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO stat_snapshots (entity_id, attributes, tracked, modifiers, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (entity_id) DO UPDATE
		SET attributes = EXCLUDED.attributes,
		    tracked    = EXCLUDED.tracked,
		    modifiers  = EXCLUDED.modifiers,
		    updated_at = NOW()`,
		entityID, attrs, tracked, mods,
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot for %q: %w", entityID, err)
	}
	return nil
}

// Load retrieves the snapshot for entityID.
//
// Postcondition: Returns the stored snapshot, or ErrSnapshotNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, entityID string) (stats.Snapshot, error) {
	var attrs, tracked, mods []byte
	err := r.db.QueryRow(ctx, `
		SELECT attributes, tracked, modifiers
		FROM stat_snapshots WHERE entity_id = $1`,
		entityID,
	).Scan(&attrs, &tracked, &mods)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats.Snapshot{}, ErrSnapshotNotFound
		}
		return stats.Snapshot{}, fmt.Errorf("loading snapshot for %q: %w", entityID, err)
	}

	var s stats.Snapshot
	if err := json.Unmarshal(attrs, &s.Attributes); err != nil {
		return stats.Snapshot{}, fmt.Errorf("decoding attributes: %w", err)
	}
	if err := json.Unmarshal(tracked, &s.Tracked); err != nil {
		return stats.Snapshot{}, fmt.Errorf("decoding tracked stats: %w", err)
	}
	if err := json.Unmarshal(mods, &s.Modifiers); err != nil {
		return stats.Snapshot{}, fmt.Errorf("decoding modifiers: %w", err)
	}
	return s, nil
}

// Delete removes the snapshot for entityID.
//
// Postcondition: Returns ErrSnapshotNotFound when no row was deleted.
func (r *SnapshotRepository) Delete(ctx context.Context, entityID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stat_snapshots WHERE entity_id = $1`, entityID)
	if err != nil {
		return fmt.Errorf("deleting snapshot for %q: %w", entityID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// ListEntityIDs returns the IDs of all persisted snapshots, ordered by ID.
func (r *SnapshotRepository) ListEntityIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT entity_id FROM stat_snapshots ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
