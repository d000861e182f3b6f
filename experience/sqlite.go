package experience

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snow-ghost/strategist/core"
)

// SQLite is the durable ExperienceRepository. Each record keeps the full
// winning path as a JSON payload next to the indexed query columns.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and ensures the schema.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLite{db: db}
	if err := store.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *SQLite) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS winning_paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		problem_type TEXT NOT NULL,
		problem_description TEXT NOT NULL,
		strategy_id TEXT NOT NULL,
		q_value REAL NOT NULL,
		iterations INTEGER NOT NULL,
		nodes INTEGER NOT NULL,
		model TEXT,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_winning_paths_type ON winning_paths(problem_type);
	CREATE INDEX IF NOT EXISTS idx_winning_paths_created ON winning_paths(created_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Save inserts one record.
func (s *SQLite) Save(ctx context.Context, record core.WinningPath) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal winning path: %w", err)
	}

	query := `
	INSERT INTO winning_paths (
		created_at, problem_type, problem_description, strategy_id,
		q_value, iterations, nodes, model, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.CreatedAt,
		record.ProblemType,
		record.ProblemDescription,
		record.FinalStrategyID,
		record.FinalQValue,
		record.TotalIterations,
		record.TotalNodesExplored,
		record.LLMModel,
		string(payload),
	)
	return err
}

// ListByType returns the stored records for one problem type, newest first.
func (s *SQLite) ListByType(ctx context.Context, problemType string) ([]core.WinningPath, error) {
	query := `
	SELECT payload FROM winning_paths
	WHERE problem_type = ?
	ORDER BY created_at DESC, id DESC
	`
	return s.queryPayloads(ctx, query, problemType)
}

// Recent returns up to limit records, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]core.WinningPath, error) {
	query := `
	SELECT payload FROM winning_paths
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`
	return s.queryPayloads(ctx, query, limit)
}

func (s *SQLite) queryPayloads(ctx context.Context, query string, args ...any) ([]core.WinningPath, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.WinningPath
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var record core.WinningPath
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("failed to decode stored winning path: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
