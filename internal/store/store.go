package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/programs"
)

// Store persists pipeline definitions and API keys. The event runtime never
// reads from it directly; the Syncer mirrors rows into the in-memory index.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables on first boot. Idempotent. Statements run
// one at a time; the extended query protocol does not accept batches.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pipelines (
			id           TEXT PRIMARY KEY,
			api_key_hash TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			programs     JSONB NOT NULL,
			filter       JSONB NOT NULL DEFAULT '{}',
			transform    JSONB NOT NULL DEFAULT '{}',
			destinations JSONB NOT NULL DEFAULT '{}',
			status       TEXT NOT NULL DEFAULT 'active',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			key_hash   TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			is_active  BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_used  TIMESTAMPTZ
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- API keys ---

// GenerateAPIKey mints a new key. Only the sha256 hash is stored.
func GenerateAPIKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return "tada_live_" + hex.EncodeToString(b)
}

// HashAPIKey is the stored form of a key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// CreateAPIKey registers a key hash.
func (s *Store) CreateAPIKey(ctx context.Context, keyHash, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (key_hash, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		keyHash, name)
	return err
}

// LookupAPIKey returns whether the key hash is known and active, touching
// last_used on hit.
func (s *Store) LookupAPIKey(ctx context.Context, keyHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used = now() WHERE key_hash = $1 AND is_active`, keyHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// --- Pipelines ---

// UpsertPipeline stores the full definition.
func (s *Store) UpsertPipeline(ctx context.Context, p *pipeline.Pipeline) error {
	progJSON, err := json.Marshal(p.Programs)
	if err != nil {
		return fmt.Errorf("marshal programs: %w", err)
	}
	filterJSON, err := json.Marshal(p.Filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	transformJSON, err := json.Marshal(p.Transform)
	if err != nil {
		return fmt.Errorf("marshal transform: %w", err)
	}
	destJSON, err := json.Marshal(p.Destinations)
	if err != nil {
		return fmt.Errorf("marshal destinations: %w", err)
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO pipelines (id, api_key_hash, name, programs, filter, transform, destinations, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			programs = EXCLUDED.programs,
			filter = EXCLUDED.filter,
			transform = EXCLUDED.transform,
			destinations = EXCLUDED.destinations,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING created_at, updated_at`,
		p.ID, p.APIKey, p.Name, progJSON, filterJSON, transformJSON, destJSON, statusOrActive(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func statusOrActive(st pipeline.Status) pipeline.Status {
	if st == "" {
		return pipeline.StatusActive
	}
	return st
}

// GetPipeline loads one definition.
func (s *Store) GetPipeline(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, api_key_hash, name, programs, filter, transform, destinations, status, created_at, updated_at
		FROM pipelines WHERE id = $1`, id)
	return scanPipeline(row)
}

// ListPipelines loads every stored definition.
func (s *Store) ListPipelines(ctx context.Context) ([]*pipeline.Pipeline, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, api_key_hash, name, programs, filter, transform, destinations, status, created_at, updated_at
		FROM pipelines ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*pipeline.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPipelineStatus updates just the status column.
func (s *Store) SetPipelineStatus(ctx context.Context, id string, st pipeline.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipelines SET status = $1, updated_at = now() WHERE id = $2`, st, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pipeline %s not found", id)
	}
	return nil
}

// DeletePipeline removes a definition.
func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (*pipeline.Pipeline, error) {
	var (
		p             pipeline.Pipeline
		progJSON      []byte
		filterJSON    []byte
		transformJSON []byte
		destJSON      []byte
		created       time.Time
		updated       time.Time
	)
	if err := row.Scan(&p.ID, &p.APIKey, &p.Name, &progJSON, &filterJSON, &transformJSON, &destJSON, &p.Status, &created, &updated); err != nil {
		return nil, err
	}
	var progIDs []programs.ID
	if err := json.Unmarshal(progJSON, &progIDs); err != nil {
		return nil, fmt.Errorf("pipeline %s: bad programs column: %w", p.ID, err)
	}
	p.Programs = progIDs
	if err := json.Unmarshal(filterJSON, &p.Filter); err != nil {
		return nil, fmt.Errorf("pipeline %s: bad filter column: %w", p.ID, err)
	}
	if err := json.Unmarshal(transformJSON, &p.Transform); err != nil {
		return nil, fmt.Errorf("pipeline %s: bad transform column: %w", p.ID, err)
	}
	if err := json.Unmarshal(destJSON, &p.Destinations); err != nil {
		return nil, fmt.Errorf("pipeline %s: bad destinations column: %w", p.ID, err)
	}
	p.CreatedAt = created
	p.UpdatedAt = updated
	return &p, nil
}
