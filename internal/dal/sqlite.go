package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// SQLiteDAL implements PredictionDAL using SQLite
type SQLiteDAL struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteDAL creates a new SQLite data access layer. When seedDemo is set an
// empty database receives the demo rows.
func NewSQLiteDAL(dbPath string, seedDemo bool) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; serialize through one connection
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{db: db, now: time.Now}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if seedDemo {
		if _, err := dal.Seed(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		fighter TEXT NOT NULL,
		round TEXT NOT NULL,
		timing TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSQLite(ctx context.Context, ex execer, p models.StoredPrediction) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO predictions (id, name, email, fighter, round, timing, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Email, p.Fighter, p.Round, p.Timing, p.Notes, p.CreatedAt.UnixMilli())
	return err
}

// seedSQLite writes p unless a row with its id exists and reports whether it
// was written
func seedSQLite(ctx context.Context, ex execer, p models.StoredPrediction) (bool, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT OR IGNORE INTO predictions (id, name, email, fighter, round, timing, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Email, p.Fighter, p.Round, p.Timing, p.Notes, p.CreatedAt.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDAL) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	p, err := newStoredPrediction(input, s.now())
	if err != nil {
		return models.Ack{}, err
	}

	if err := insertSQLite(ctx, s.db, p); err != nil {
		return models.Ack{}, fmt.Errorf("failed to insert prediction: %w", err)
	}
	return ackFor(p), nil
}

func (s *SQLiteDAL) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	preds, err := s.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return records(preds), nil
}

func (s *SQLiteDAL) ListPredictions(ctx context.Context) ([]models.StoredPrediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, fighter, round, timing, notes, created_at
		FROM predictions ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	preds := []models.StoredPrediction{}
	for rows.Next() {
		var p models.StoredPrediction
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Fighter, &p.Round, &p.Timing, &p.Notes, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.UnixMilli(createdAt).UTC()
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *SQLiteDAL) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteDAL) Seed(ctx context.Context) (int, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Another process may share the database file
	inserted := 0
	for _, p := range getDefaultPredictions() {
		ok, err := seedSQLite(ctx, tx, p)
		if err != nil {
			return 0, fmt.Errorf("failed to seed prediction %s: %w", p.ID, err)
		}
		if ok {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLiteDAL) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM predictions")
	return err
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}
