package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/storage"
)

// SaveAgent upserts a DYNAMIC record.
func (s *Store) SaveAgent(ctx context.Context, rec model.AgentRecord) error {
	created := time.Now().UTC()
	if rec.CreatedAt != nil {
		created = rec.CreatedAt.UTC()
	}
	skills := rec.Skills
	if skills == nil {
		skills = []string{}
	}

	err := s.retryWrite(ctx, rec.Name, func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO dynamic_agents (name, role, stability, display_name, emoji, personality, skills, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			 ON CONFLICT (name) DO UPDATE SET
			   role = EXCLUDED.role,
			   stability = EXCLUDED.stability,
			   display_name = EXCLUDED.display_name,
			   emoji = EXCLUDED.emoji,
			   personality = EXCLUDED.personality,
			   skills = EXCLUDED.skills,
			   created_at = EXCLUDED.created_at,
			   updated_at = now()`,
			rec.Name, rec.Role, rec.Stability, rec.DisplayName, rec.Emoji,
			rec.Personality, skills, created,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres: save agent %s: %w", rec.Name, err)
	}
	return nil
}

// DeleteAgent removes the record stored under name.
func (s *Store) DeleteAgent(ctx context.Context, name string) error {
	var affected int64
	err := s.retryWrite(ctx, name, func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM dynamic_agents WHERE name = $1`, name)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: delete agent %s: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("postgres: delete agent %s: %w", name, storage.ErrNotFound)
	}
	return nil
}

// ListAgents returns every stored record, oldest first.
func (s *Store) ListAgents(ctx context.Context) ([]model.AgentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, role, stability, display_name, emoji, personality, skills, created_at
		 FROM dynamic_agents ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

func scanAgents(rows pgx.Rows) ([]model.AgentRecord, error) {
	var out []model.AgentRecord
	for rows.Next() {
		var (
			rec     model.AgentRecord
			created time.Time
		)
		if err := rows.Scan(
			&rec.Name, &rec.Role, &rec.Stability, &rec.DisplayName, &rec.Emoji,
			&rec.Personality, &rec.Skills, &created,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan agent: %w", err)
		}
		rec.Tier = model.TierDynamic
		created = created.UTC()
		rec.CreatedAt = &created
		if len(rec.Skills) == 0 {
			rec.Skills = nil
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	return out, nil
}

var _ storage.Store = (*Store)(nil)
