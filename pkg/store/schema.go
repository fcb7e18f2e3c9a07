package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates the events/rule_matches/ascii_matches tables if
// they don't already exist.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := createEventsTable(ctx, pool); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}
	if err := createRuleMatchesTable(ctx, pool); err != nil {
		return fmt.Errorf("creating rule_matches table: %w", err)
	}
	if err := createAsciiMatchesTable(ctx, pool); err != nil {
		return fmt.Errorf("creating ascii_matches table: %w", err)
	}
	return nil
}

func createEventsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			source TEXT NOT NULL,
			url TEXT NOT NULL,
			size BIGINT NOT NULL,
			filename TEXT NOT NULL,
			creator TEXT NOT NULL,
			raw_content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			discovered_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func createRuleMatchesTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rule_matches (
			id INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			rule_matched TEXT NOT NULL,
			tags_matched TEXT[] NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_rule_matches_event_id ON rule_matches(event_id)
	`)
	return err
}

func createAsciiMatchesTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ascii_matches (
			id INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			match_id INTEGER NOT NULL REFERENCES rule_matches(id),
			matched_string TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_ascii_matches_match_id ON ascii_matches(match_id)
	`)
	return err
}
