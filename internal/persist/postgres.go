package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

// styleFromStored guards against rows written by a future style set.
func styleFromStored(v int16) stats.Style {
	style := stats.Style(v)
	if !style.Valid() {
		return stats.StyleAccurate
	}
	return style
}

// Postgres persists preferences and snapshots in two small tables. It is
// wired up when DATABASE_URL is set; the schema is created on connect so a
// fresh database works without migrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and ensures the schema.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("persist: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	store := &Postgres{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS combat_preferences (
	player_id      TEXT PRIMARY KEY,
	auto_retaliate BOOLEAN NOT NULL,
	style          SMALLINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS combat_snapshots (
	session    TEXT NOT NULL,
	tick       BIGINT NOT NULL,
	payload    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session, tick)
);`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("persist: ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) LoadPrefs(ctx context.Context, playerID string) (PlayerPrefs, error) {
	var prefs PlayerPrefs
	var style int16
	row := p.pool.QueryRow(ctx,
		`SELECT auto_retaliate, style FROM combat_preferences WHERE player_id = $1`, playerID)
	if err := row.Scan(&prefs.AutoRetaliate, &style); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlayerPrefs{}, ErrNotFound
		}
		return PlayerPrefs{}, fmt.Errorf("persist: load prefs: %w", err)
	}
	prefs.Style = styleFromStored(style)
	return prefs, nil
}

func (p *Postgres) SavePrefs(ctx context.Context, playerID string, prefs PlayerPrefs) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO combat_preferences (player_id, auto_retaliate, style, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (player_id)
DO UPDATE SET auto_retaliate = EXCLUDED.auto_retaliate,
              style = EXCLUDED.style,
              updated_at = now()`,
		playerID, prefs.AutoRetaliate, int16(prefs.Style))
	if err != nil {
		return fmt.Errorf("persist: save prefs: %w", err)
	}
	return nil
}

func (p *Postgres) PutSnapshot(ctx context.Context, session string, snap journal.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("persist: encode snapshot: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO combat_snapshots (session, tick, payload)
VALUES ($1, $2, $3)
ON CONFLICT (session, tick) DO UPDATE SET payload = EXCLUDED.payload`,
		session, int64(snap.Tick), data)
	if err != nil {
		return fmt.Errorf("persist: put snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) LatestSnapshot(ctx context.Context, session string) (journal.Snapshot, error) {
	var data []byte
	row := p.pool.QueryRow(ctx,
		`SELECT payload FROM combat_snapshots WHERE session = $1 ORDER BY tick DESC LIMIT 1`, session)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journal.Snapshot{}, ErrNotFound
		}
		return journal.Snapshot{}, fmt.Errorf("persist: latest snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return journal.Snapshot{}, fmt.Errorf("persist: decode snapshot: %w", err)
	}
	return snap, nil
}

var (
	_ PreferenceStore = (*Postgres)(nil)
	_ SnapshotStore   = (*Postgres)(nil)
)
