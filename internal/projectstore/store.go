package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casebook/internal/assets"
	"casebook/internal/registry"
)

// Project is a project root the store has metadata for.
type Project struct {
	ID           int64
	Root         string
	CreatedAt    time.Time
	LastOpenedAt time.Time
	Assets       int
	Overrides    int
}

// Touch registers root (if new) and records that it was opened now.
func (s *Store) Touch(ctx context.Context, root string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := projectID(ctx, tx, root, true)
		return err
	})
}

// Projects lists every known project, most recently opened first.
func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT p.id, p.root, p.created_at, p.last_opened_at,
               (SELECT COUNT(1) FROM asset_bindings b WHERE b.project_id = p.id),
               (SELECT COUNT(1) FROM asset_overrides o WHERE o.project_id = p.id)
        FROM projects p
        ORDER BY p.last_opened_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var (
			p               Project
			created, opened string
		)
		if err := rows.Scan(&p.ID, &p.Root, &created, &opened, &p.Assets, &p.Overrides); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		p.LastOpenedAt, _ = time.Parse(time.RFC3339Nano, opened)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadOverrides returns the stored user metadata for root keyed by relative path.
func (s *Store) LoadOverrides(ctx context.Context, root string) (map[string]assets.Override, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT o.relative_path, o.display_name, o.loop, o.volume
        FROM asset_overrides o
        JOIN projects p ON p.id = o.project_id
        WHERE p.root = ?`, root)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]assets.Override)
	for rows.Next() {
		var (
			rel    string
			name   sql.NullString
			loop   sql.NullInt64
			volume sql.NullFloat64
		)
		if err := rows.Scan(&rel, &name, &loop, &volume); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		var o assets.Override
		if name.Valid {
			value := name.String
			o.DisplayName = &value
		}
		if loop.Valid {
			value := loop.Int64 != 0
			o.Loop = &value
		}
		if volume.Valid {
			value := volume.Float64
			o.Volume = &value
		}
		out[rel] = o
	}
	return out, rows.Err()
}

// SaveOverride stores o as the complete override for rel. A zero override
// deletes the row.
func (s *Store) SaveOverride(ctx context.Context, root, rel string, o assets.Override) error {
	rel = assets.NormalizePath(rel)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(ctx, tx, root, false)
		if err != nil {
			return err
		}
		if o.IsZero() {
			_, err := tx.ExecContext(ctx, `DELETE FROM asset_overrides WHERE project_id = ? AND relative_path = ?`, pid, rel)
			if err != nil {
				return fmt.Errorf("delete override: %w", err)
			}
			return nil
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO asset_overrides (project_id, relative_path, display_name, loop, volume, updated_at)
            VALUES (?, ?, ?, ?, ?, ?)
            ON CONFLICT(project_id, relative_path) DO UPDATE SET
                display_name = excluded.display_name,
                loop = excluded.loop,
                volume = excluded.volume,
                updated_at = excluded.updated_at`,
			pid, rel, nullableString(o.DisplayName), nullableBool(o.Loop), nullableFloat(o.Volume), nowString())
		if err != nil {
			return fmt.Errorf("save override: %w", err)
		}
		return nil
	})
}

// LoadBindings returns the persisted path to id associations for root.
func (s *Store) LoadBindings(ctx context.Context, root string) ([]registry.Binding, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT b.relative_path, b.asset_id
        FROM asset_bindings b
        JOIN projects p ON p.id = b.project_id
        WHERE p.root = ?
        ORDER BY b.relative_path`, root)
	if err != nil {
		return nil, fmt.Errorf("load bindings: %w", err)
	}
	defer rows.Close()

	var out []registry.Binding
	for rows.Next() {
		var b registry.Binding
		if err := rows.Scan(&b.RelativePath, &b.ID); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveBinding records that rel is bound to id.
func (s *Store) SaveBinding(ctx context.Context, root string, b registry.Binding) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(ctx, tx, root, false)
		if err != nil {
			return err
		}
		return upsertBinding(ctx, tx, pid, b)
	})
}

// DeleteBindings forgets the bindings for every rel in one transaction.
func (s *Store) DeleteBindings(ctx context.Context, root string, rels ...string) error {
	if len(rels) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(ctx, tx, root, false)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM asset_bindings WHERE project_id = ? AND relative_path = ?`)
		if err != nil {
			return fmt.Errorf("prepare binding delete: %w", err)
		}
		defer stmt.Close()
		for _, rel := range rels {
			if _, err := stmt.ExecContext(ctx, pid, assets.NormalizePath(rel)); err != nil {
				return fmt.Errorf("delete binding: %w", err)
			}
		}
		return nil
	})
}

// ReplaceBindings makes bindings the complete binding set for root, used after
// a full reconciliation.
func (s *Store) ReplaceBindings(ctx context.Context, root string, bindings []registry.Binding) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(ctx, tx, root, false)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_bindings WHERE project_id = ?`, pid); err != nil {
			return fmt.Errorf("clear bindings: %w", err)
		}
		for _, b := range bindings {
			if err := upsertBinding(ctx, tx, pid, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertBinding(ctx context.Context, tx *sql.Tx, pid int64, b registry.Binding) error {
	rel := assets.NormalizePath(b.RelativePath)
	if rel == "" || b.ID == "" {
		return errors.New("binding requires a path and an id")
	}
	// An id moves with its path; drop any stale row still holding it.
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_bindings WHERE asset_id = ? AND NOT (project_id = ? AND relative_path = ?)`,
		b.ID, pid, rel); err != nil {
		return fmt.Errorf("release asset id: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
        INSERT INTO asset_bindings (project_id, relative_path, asset_id, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(project_id, relative_path) DO UPDATE SET
            asset_id = excluded.asset_id,
            updated_at = excluded.updated_at`,
		pid, rel, b.ID, nowString())
	if err != nil {
		return fmt.Errorf("save binding: %w", err)
	}
	return nil
}

// projectID resolves root to its row id, creating the row when missing. When
// touch is set, last_opened_at is refreshed on an existing row.
func projectID(ctx context.Context, tx *sql.Tx, root string, touch bool) (int64, error) {
	if root == "" {
		return 0, errors.New("project root is empty")
	}
	now := nowString()
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE root = ?`, root).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `INSERT INTO projects (root, created_at, last_opened_at) VALUES (?, ?, ?)`, root, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert project: %w", err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("lookup project: %w", err)
	}
	if touch {
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET last_opened_at = ? WHERE id = ?`, now, id); err != nil {
			return 0, fmt.Errorf("touch project: %w", err)
		}
	}
	return id, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
