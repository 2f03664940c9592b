package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Options locates the ClickHouse server
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Client mirrors accepted predictions into ClickHouse for reporting
type Client struct {
	conn driver.Conn
}

// NewClient connects to ClickHouse and creates the events table if needed
func NewClient(opts Options) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("Connected to ClickHouse", "addr", opts.Addr, "database", opts.Database)
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	// ReplacingMergeTree collapses redelivered events with the same id
	err := c.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prediction_events (
			id String,
			name String,
			fighter LowCardinality(String),
			round LowCardinality(String),
			timing LowCardinality(String),
			has_notes UInt8,
			created_at DateTime64(3, 'UTC')
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (fighter, id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create prediction_events table: %w", err)
	}
	return nil
}

// RecordPrediction stores one accepted prediction. Email and notes text are
// not copied into analytics.
func (c *Client) RecordPrediction(ctx context.Context, p models.StoredPrediction) error {
	var hasNotes uint8
	if p.Notes != "" {
		hasNotes = 1
	}

	err := c.conn.Exec(ctx, `
		INSERT INTO prediction_events (id, name, fighter, round, timing, has_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Fighter, p.Round, p.Timing, hasNotes, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", p.ID, err)
	}
	return nil
}

// FighterCounts returns how many predictions back each fighter
func (c *Client) FighterCounts(ctx context.Context) (map[string]int, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT fighter, count() AS n
		FROM prediction_events FINAL
		GROUP BY fighter
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var fighter string
		var n uint64
		if err := rows.Scan(&fighter, &n); err != nil {
			return nil, err
		}
		counts[fighter] = int(n)
	}
	return counts, rows.Err()
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
