// Package templatestore is the relational alternative to
// template.MemoryStore, used when ENVIRONMENT=prod. Rows are
// soft-deleted (is_deleted) rather than removed, using a boolean flag
// since templates/hosts here have no need for a deletion timestamp.
package templatestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
	"surveyengine/internal/repository/postgres"
)

// Store is a postgres-backed template.Store.
type Store struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// New builds a Store.
func New(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *Store {
	return &Store{pool: pool, tables: tables, logger: logger}
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	query := fmt.Sprintf(`
		SELECT id, theme, system_prompt, background_knowledge, max_turns,
		       welcome_message, end_message, steps, variables, host_id
		FROM %s
		WHERE id = $1 AND is_deleted = false
	`, s.tables.Templates)

	var (
		t            models.Template
		stepsJSON    []byte
		variablesJSON []byte
	)

	executor := postgres.GetExecutor(ctx, s.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Theme, &t.SystemPrompt, &t.BackgroundKnowledge, &t.MaxTurns,
		&t.WelcomeMessage, &t.EndMessage, &stepsJSON, &variablesJSON, &t.HostID,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &t.Steps); err != nil {
		return nil, fmt.Errorf("decode template steps: %w", err)
	}
	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &t.Variables); err != nil {
			return nil, fmt.Errorf("decode template variables: %w", err)
		}
	}

	return &t, nil
}

func (s *Store) GetHost(ctx context.Context, id string) (*models.Host, error) {
	query := fmt.Sprintf(`
		SELECT id, role FROM %s WHERE id = $1 AND is_deleted = false
	`, s.tables.Hosts)

	var h models.Host
	executor := postgres.GetExecutor(ctx, s.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&h.ID, &h.Role)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("host %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get host: %w", err)
	}

	return &h, nil
}

// ListTemplates returns every non-deleted template.
func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	query := fmt.Sprintf(`
		SELECT id, theme, system_prompt, background_knowledge, max_turns,
		       welcome_message, end_message, steps, variables, host_id
		FROM %s
		WHERE is_deleted = false
		ORDER BY id
	`, s.tables.Templates)

	executor := postgres.GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var (
			t             models.Template
			stepsJSON     []byte
			variablesJSON []byte
		)
		if err := rows.Scan(
			&t.ID, &t.Theme, &t.SystemPrompt, &t.BackgroundKnowledge, &t.MaxTurns,
			&t.WelcomeMessage, &t.EndMessage, &stepsJSON, &variablesJSON, &t.HostID,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal(stepsJSON, &t.Steps); err != nil {
			return nil, fmt.Errorf("decode template steps: %w", err)
		}
		if len(variablesJSON) > 0 {
			if err := json.Unmarshal(variablesJSON, &t.Variables); err != nil {
				return nil, fmt.Errorf("decode template variables: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTemplate is the AdminStore-facing name for Upsert.
func (s *Store) UpsertTemplate(ctx context.Context, t models.Template) error {
	return s.Upsert(ctx, t)
}

// DeleteTemplate soft-deletes a template row.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = true WHERE id = $1 AND is_deleted = false`, s.tables.Templates)
	executor := postgres.GetExecutor(ctx, s.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListHosts returns every non-deleted host.
func (s *Store) ListHosts(ctx context.Context) ([]models.Host, error) {
	query := fmt.Sprintf(`SELECT id, role FROM %s WHERE is_deleted = false ORDER BY id`, s.tables.Hosts)
	executor := postgres.GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var out []models.Host
	for rows.Next() {
		var h models.Host
		if err := rows.Scan(&h.ID, &h.Role); err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpsertHost inserts or soft-undeletes a host.
func (s *Store) UpsertHost(ctx context.Context, h models.Host) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, role, is_deleted)
		VALUES ($1, $2, false)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, is_deleted = false
	`, s.tables.Hosts)
	executor := postgres.GetExecutor(ctx, s.pool)
	if _, err := executor.Exec(ctx, query, h.ID, h.Role); err != nil {
		return fmt.Errorf("upsert host: %w", err)
	}
	return nil
}

// DeleteHost soft-deletes a host row.
func (s *Store) DeleteHost(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = true WHERE id = $1 AND is_deleted = false`, s.tables.Hosts)
	executor := postgres.GetExecutor(ctx, s.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete host: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("host %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Upsert inserts or soft-undeletes a template, for the seed command.
func (s *Store) Upsert(ctx context.Context, t models.Template) error {
	stepsJSON, err := json.Marshal(t.Steps)
	if err != nil {
		return fmt.Errorf("encode template steps: %w", err)
	}
	variablesJSON, err := json.Marshal(t.Variables)
	if err != nil {
		return fmt.Errorf("encode template variables: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, theme, system_prompt, background_knowledge, max_turns,
		                 welcome_message, end_message, steps, variables, host_id, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
		ON CONFLICT (id) DO UPDATE SET
			theme = EXCLUDED.theme,
			system_prompt = EXCLUDED.system_prompt,
			background_knowledge = EXCLUDED.background_knowledge,
			max_turns = EXCLUDED.max_turns,
			welcome_message = EXCLUDED.welcome_message,
			end_message = EXCLUDED.end_message,
			steps = EXCLUDED.steps,
			variables = EXCLUDED.variables,
			host_id = EXCLUDED.host_id,
			is_deleted = false
	`, s.tables.Templates)

	executor := postgres.GetExecutor(ctx, s.pool)
	_, err = executor.Exec(ctx, query,
		t.ID, t.Theme, t.SystemPrompt, t.BackgroundKnowledge, t.MaxTurns,
		t.WelcomeMessage, t.EndMessage, stepsJSON, variablesJSON, t.HostID,
	)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}
