// Package sqlite implements storage.Store on modernc.org/sqlite, a pure-Go
// SQLite driver, so the default on-disk backend needs no cgo.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/storage"
	"github.com/solvine-ai/solvine/migrations"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a *sql.DB opened on a single SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New opens (creating if needed) the database at path and applies the
// embedded migrations.
func New(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.RunMigrations(ctx, migrations.SQLite()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SaveAgent upserts a DYNAMIC record.
func (s *Store) SaveAgent(ctx context.Context, rec model.AgentRecord) error {
	skills := rec.Skills
	if skills == nil {
		skills = []string{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("sqlite: encode skills: %w", err)
	}
	now := time.Now().UTC()
	created := now
	if rec.CreatedAt != nil {
		created = rec.CreatedAt.UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dynamic_agents (name, role, stability, display_name, emoji, personality, skills, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   role = excluded.role,
		   stability = excluded.stability,
		   display_name = excluded.display_name,
		   emoji = excluded.emoji,
		   personality = excluded.personality,
		   skills = excluded.skills,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		rec.Name, rec.Role, rec.Stability, rec.DisplayName, rec.Emoji,
		nullString(rec.Personality), string(skillsJSON),
		created.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save agent %s: %w", rec.Name, err)
	}
	return nil
}

// DeleteAgent removes the record stored under name.
func (s *Store) DeleteAgent(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dynamic_agents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite: delete agent %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete agent %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: delete agent %s: %w", name, storage.ErrNotFound)
	}
	return nil
}

// ListAgents returns every stored record, oldest first.
func (s *Store) ListAgents(ctx context.Context) ([]model.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, role, stability, display_name, emoji, personality, skills, created_at
		 FROM dynamic_agents ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AgentRecord
	for rows.Next() {
		var (
			rec         model.AgentRecord
			personality sql.NullString
			skillsJSON  string
			createdRaw  string
		)
		if err := rows.Scan(
			&rec.Name, &rec.Role, &rec.Stability, &rec.DisplayName, &rec.Emoji,
			&personality, &skillsJSON, &createdRaw,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan agent: %w", err)
		}
		if personality.Valid {
			p := personality.String
			rec.Personality = &p
		}
		if err := json.Unmarshal([]byte(skillsJSON), &rec.Skills); err != nil {
			return nil, fmt.Errorf("sqlite: decode skills for %s: %w", rec.Name, err)
		}
		if len(rec.Skills) == 0 {
			rec.Skills = nil
		}
		created, err := time.Parse(timeLayout, createdRaw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at for %s: %w", rec.Name, err)
		}
		created = created.UTC()
		rec.CreatedAt = &created
		rec.Tier = model.TierDynamic
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list agents: %w", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) Kind() string { return "sqlite" }

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

var _ storage.Store = (*Store)(nil)
