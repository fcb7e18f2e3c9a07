// Package store persists ProcessedEvents to PostgreSQL. One
// PersistProcessedEvent call is one transaction: the event row, then
// each RuleMatch, then each RuleMatch's AsciiMatch rows, committed
// together or not at all.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praetorian-inc/infobserve/pkg/types"
)

// Store persists scan results for the pipeline's loader workers.
type Store interface {
	// PersistProcessedEvent writes ev's Event row and all of its
	// RuleMatch/AsciiMatch rows in a single transaction.
	PersistProcessedEvent(ctx context.Context, ev types.ProcessedEvent) error

	// Close releases the underlying connection pool.
	Close()
}

// Config configures a PostgresStore.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Passwd   string
}

// dsn renders cfg as a libpq connection string.
func (cfg Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Passwd)
}

// New connects to PostgreSQL and applies the schema, returning a ready
// to use Store.
func New(ctx context.Context, cfg Config) (Store, error) {
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}

	if err := CreateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// PostgresStore implements Store over a pooled PostgreSQL connection.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PersistProcessedEvent implements Store.
func (s *PostgresStore) PersistProcessedEvent(ctx context.Context, pe types.ProcessedEvent) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("store: acquiring connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	eventID, err := insertEvent(ctx, tx, pe.Event)
	if err != nil {
		return fmt.Errorf("store: inserting event: %w", err)
	}

	for _, match := range pe.Matches {
		ruleMatch := types.RuleMatch{
			EventID:     eventID,
			RuleMatched: match.RuleName,
			TagsMatched: match.Tags,
		}
		ruleMatchID, err := insertRuleMatch(ctx, tx, ruleMatch)
		if err != nil {
			return fmt.Errorf("store: inserting rule match %q: %w", match.RuleName, err)
		}

		for _, fragment := range match.Fragments {
			asciiMatch := types.AsciiMatch{
				RuleMatchID:   ruleMatchID,
				MatchedString: fragment,
			}
			if err := insertAsciiMatch(ctx, tx, asciiMatch); err != nil {
				return fmt.Errorf("store: inserting ascii match for rule %q: %w", match.RuleName, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: committing: %w", err)
	}
	return nil
}

// insertEvent writes ev and returns the store-assigned id.
func insertEvent(ctx context.Context, tx pgx.Tx, ev types.Event) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO events (source, url, size, filename, creator, raw_content, created_at, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		ev.Source, ev.URL, ev.Size, ev.Filename, ev.Creator, ev.RawContent, ev.CreatedAt, ev.DiscoveredAt,
	).Scan(&id)
	return id, err
}

// insertRuleMatch writes rm (EventID already populated) and returns the
// store-assigned id.
func insertRuleMatch(ctx context.Context, tx pgx.Tx, rm types.RuleMatch) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO rule_matches (event_id, rule_matched, tags_matched)
		VALUES ($1, $2, $3)
		RETURNING id`,
		rm.EventID, rm.RuleMatched, rm.TagsMatched,
	).Scan(&id)
	return id, err
}

// insertAsciiMatch writes am (RuleMatchID already populated).
func insertAsciiMatch(ctx context.Context, tx pgx.Tx, am types.AsciiMatch) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ascii_matches (match_id, matched_string)
		VALUES ($1, $2)`,
		am.RuleMatchID, am.MatchedString,
	)
	return err
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
