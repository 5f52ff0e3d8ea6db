package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileEvent is one recorded file edit. Events are append-only: they are
// never mutated after Record returns and are removed only when the
// session itself is pruned.
type FileEvent struct {
	// ID is assigned by the tracker (UUIDv7, time-sortable).
	ID string
	// Path is the repository-relative path that was touched.
	Path string
	// Tool is the opaque kind of edit operation (create/modify/...).
	Tool string
	// Seq is the per-session logical sequence number, assigned by the
	// tracker. Ordering uses Seq, never wall-clock time.
	Seq int64
	// RecordedAt is the wall-clock time the event was committed.
	RecordedAt time.Time
}

// EventIDGenerator generates unique ids for recorded file events.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type EventIDGenerator interface {
	Generate() string
}

// Tracker records file-edit events and serves recent-path and
// project-structure queries, all backed by one SQLite database.
type Tracker struct {
	db        *sql.DB
	structure StructureConfig
	idGen     EventIDGenerator
	now       func() time.Time
}

// storedTimeLayout is RFC 3339 with a fixed-width fractional second.
// RFC3339Nano trims trailing zeros, which breaks the lexicographic
// timestamp comparisons the prune query relies on.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Option configures a Tracker.
type Option func(*Tracker)

// WithStructureConfig overrides the structure-inference parameters.
func WithStructureConfig(cfg StructureConfig) Option {
	return func(t *Tracker) {
		t.structure = cfg
	}
}

// WithEventIDGenerator overrides the event id generator. Tests use a
// FixedGenerator for deterministic logs.
func WithEventIDGenerator(gen EventIDGenerator) Option {
	return func(t *Tracker) {
		t.idGen = gen
	}
}

// WithNow overrides the time source. Tests use a deterministic clock.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Open creates or opens the session database at path.
func Open(path string, opts ...Option) (*Tracker, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		db:        db,
		structure: DefaultStructureConfig(),
		idGen:     UUIDv7Generator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close closes the underlying database.
func (t *Tracker) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Record appends a file event to the session's log and updates the
// structure counts, all in one transaction.
//
// The event's ID, Seq, and RecordedAt are assigned here; callers supply
// Path and Tool only. Record returns only after commit - if it returns
// an error the event was not recorded and has no side effect.
func (t *Tracker) Record(ctx context.Context, sessionID string, ev FileEvent) error {
	if sessionID == "" {
		return fmt.Errorf("record: session id is required")
	}
	if ev.Path == "" {
		return fmt.Errorf("record: event path is required")
	}

	now := t.now().UTC()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sessionID, now.Format(storedTimeLayout))
	if err != nil {
		return fmt.Errorf("record: ensure session: %w", err)
	}

	// Next seq is derived inside the transaction so racing invocations
	// for the same session serialize instead of colliding.
	var seq int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM file_events WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("record: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_events (id, session_id, seq, path, tool, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.idGen.Generate(), sessionID, seq, ev.Path, ev.Tool, now.Format(storedTimeLayout))
	if err != nil {
		return fmt.Errorf("record: insert event: %w", err)
	}

	if err := t.bumpSegment(ctx, tx, sessionID, ev.Path); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record: commit: %w", err)
	}

	return nil
}

// bumpSegment increments the top-level segment count for path and flips
// the recognized flag once the threshold is reached. Paths without a
// directory component contribute nothing to structure inference.
func (t *Tracker) bumpSegment(ctx context.Context, tx *sql.Tx, sessionID, path string) error {
	segment, _, found := strings.Cut(path, "/")
	if !found || segment == "" {
		return nil
	}

	recognized := 0
	if t.structure.Reserved(segment) || t.structure.Threshold <= 1 {
		recognized = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO structure_segments (session_id, segment, count, recognized)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(session_id, segment) DO UPDATE SET
			count      = count + 1,
			recognized = MAX(recognized, excluded.recognized,
			                 CASE WHEN count + 1 >= ? THEN 1 ELSE 0 END)
	`, sessionID, segment, recognized, t.structure.Threshold)
	if err != nil {
		return fmt.Errorf("bump segment %q: %w", segment, err)
	}
	return nil
}

// RecentPaths returns up to limit paths for the session, most recent
// first. Repeated edits of the same path stay distinct entries; nothing
// is deduplicated.
func (t *Tracker) RecentPaths(ctx context.Context, sessionID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT path FROM file_events
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("recent paths: scan: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent paths: %w", err)
	}
	return paths, nil
}

// Events returns the session's full event log in recording order
// (oldest first). Used by the sessions inspection command.
func (t *Tracker) Events(ctx context.Context, sessionID string) ([]FileEvent, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, seq, path, tool, recorded_at FROM file_events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	defer rows.Close()

	var events []FileEvent
	for rows.Next() {
		var (
			ev         FileEvent
			recordedAt string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Path, &ev.Tool, &recordedAt); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		ev.RecordedAt, err = time.Parse(storedTimeLayout, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("events: parse recorded_at: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return events, nil
}

// StructureOf returns the session's recognized project components as a
// map from component name to path prefix (e.g. "backend" -> "backend/").
func (t *Tracker) StructureOf(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT segment FROM structure_segments
		WHERE session_id = ? AND recognized = 1
		ORDER BY segment ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}
	defer rows.Close()

	structure := make(map[string]string)
	for rows.Next() {
		var segment string
		if err := rows.Scan(&segment); err != nil {
			return nil, fmt.Errorf("structure: scan: %w", err)
		}
		structure[segment] = segment + "/"
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}
	return structure, nil
}

// SessionIDs returns all known session ids, oldest first.
func (t *Tracker) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id FROM sessions ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session ids: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session ids: %w", err)
	}
	return ids, nil
}

// PruneBefore deletes every session created before cutoff, along with
// its events and structure rows. Returns the number of sessions removed.
func (t *Tracker) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune: begin tx: %w", err)
	}
	defer tx.Rollback()

	cut := cutoff.UTC().Format(storedTimeLayout)

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM file_events WHERE session_id IN
			(SELECT id FROM sessions WHERE created_at < ?)
	`, cut); err != nil {
		return 0, fmt.Errorf("prune: events: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM structure_segments WHERE session_id IN
			(SELECT id FROM sessions WHERE created_at < ?)
	`, cut); err != nil {
		return 0, fmt.Errorf("prune: segments: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cut)
	if err != nil {
		return 0, fmt.Errorf("prune: sessions: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune: commit: %w", err)
	}
	return pruned, nil
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so event ids
// sort by creation time, which helps when eyeballing the raw log.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for deterministic tests and
// golden-file comparison.
//
// Panics when all ids are consumed - fail-fast for test
// misconfiguration (the test generated more events than expected).
type FixedGenerator struct {
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
