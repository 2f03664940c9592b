package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// PostgresDAL implements PredictionDAL using PostgreSQL
type PostgresDAL struct {
	db  *sql.DB
	now func() time.Time
}

const (
	pgMaxRetries = 5
	pgRetryDelay = 5 * time.Second
	pgPingWait   = 60 * time.Second
)

// NewPostgresDAL creates a new PostgreSQL data access layer
func NewPostgresDAL(connString string, seedDemo bool) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute) // recycle across failovers
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Retry the first ping: in Kubernetes the service DNS name can lag the pod
	var lastErr error
	for i := 0; i < pgMaxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), pgPingWait)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		logger.Warn("Postgres ping failed", "attempt", i+1, "error", lastErr)
		if i < pgMaxRetries-1 {
			time.Sleep(pgRetryDelay)
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", pgMaxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db, now: time.Now}

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

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		fighter TEXT NOT NULL,
		round TEXT NOT NULL,
		timing TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_fighter ON predictions(fighter);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}
	return nil
}

func insertPostgres(ctx context.Context, ex execer, pred models.StoredPrediction) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO predictions (id, name, email, fighter, round, timing, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pred.ID, pred.Name, pred.Email, pred.Fighter, pred.Round, pred.Timing, pred.Notes, pred.CreatedAt)
	return err
}

// seedPostgres writes pred unless a row with its id exists and reports
// whether it was written
func seedPostgres(ctx context.Context, ex execer, pred models.StoredPrediction) (bool, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO predictions (id, name, email, fighter, round, timing, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, pred.ID, pred.Name, pred.Email, pred.Fighter, pred.Round, pred.Timing, pred.Notes, pred.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDAL) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	pred, err := newStoredPrediction(input, p.now())
	if err != nil {
		return models.Ack{}, err
	}

	if err := insertPostgres(ctx, p.db, pred); err != nil {
		return models.Ack{}, fmt.Errorf("failed to insert prediction: %w", err)
	}
	return ackFor(pred), nil
}

func (p *PostgresDAL) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	preds, err := p.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return records(preds), nil
}

func (p *PostgresDAL) ListPredictions(ctx context.Context) ([]models.StoredPrediction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, email, fighter, round, timing, notes, created_at
		FROM predictions ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	preds := []models.StoredPrediction{}
	for rows.Next() {
		var pred models.StoredPrediction
		if err := rows.Scan(&pred.ID, &pred.Name, &pred.Email, &pred.Fighter, &pred.Round, &pred.Timing, &pred.Notes, &pred.CreatedAt); err != nil {
			return nil, err
		}
		pred.CreatedAt = pred.CreatedAt.UTC()
		preds = append(preds, pred)
	}
	return preds, rows.Err()
}

func (p *PostgresDAL) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *PostgresDAL) Seed(ctx context.Context) (int, error) {
	count, err := p.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Another replica may be seeding the same empty table
	inserted := 0
	for _, pred := range getDefaultPredictions() {
		ok, err := seedPostgres(ctx, tx, pred)
		if err != nil {
			return 0, fmt.Errorf("failed to seed prediction %s: %w", pred.ID, err)
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

func (p *PostgresDAL) Reset(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "TRUNCATE predictions")
	return err
}

func (p *PostgresDAL) Close() error {
	return p.db.Close()
}
