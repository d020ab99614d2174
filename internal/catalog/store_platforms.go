package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"romshelf/internal/services"
	"romshelf/internal/textutil"
)

func getPlatform(ctx context.Context, q querier, id int64) (*Platform, error) {
	platform, err := scanPlatform(q.QueryRowContext(ctx, platformSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get platform", fmt.Sprintf("platform %d does not exist", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	return platform, nil
}

// AddPlatform creates the platform or, when fs_slug is already registered,
// refreshes its display name and returns the existing record.
func (s *Store) AddPlatform(ctx context.Context, fsSlug, name string) (*Platform, error) {
	ctx = ensureContext(ctx)
	fsSlug = strings.TrimSpace(fsSlug)
	if fsSlug == "" || strings.ContainsAny(fsSlug, `/\`) || fsSlug == "." || fsSlug == ".." {
		return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "add platform", fmt.Sprintf("invalid fs slug %q", fsSlug), nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fsSlug
	}
	slug := textutil.Slugify(fsSlug)
	if slug == "" {
		slug = fsSlug
	}

	var platform *Platform
	err := s.WithTx(ctx, func(tx *Tx) error {
		timestamp := timestampNow()
		var id int64
		err := tx.tx.QueryRowContext(ctx,
			`INSERT INTO platforms (slug, fs_slug, name, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(fs_slug) DO UPDATE SET
                name = excluded.name,
                updated_at = excluded.updated_at
            RETURNING id`,
			slug, fsSlug, name, timestamp, timestamp,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert platform: %w", err)
		}
		platform, err = getPlatform(ctx, tx.tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return platform, nil
}

// GetPlatform fetches a platform by id.
func (s *Store) GetPlatform(ctx context.Context, id int64) (*Platform, error) {
	return getPlatform(ensureContext(ctx), s.db, id)
}

// GetPlatformByFSSlug fetches a platform by its storage directory name.
func (s *Store) GetPlatformByFSSlug(ctx context.Context, fsSlug string) (*Platform, error) {
	platform, err := scanPlatform(s.db.QueryRowContext(ensureContext(ctx), platformSelect+` WHERE p.fs_slug = ?`, fsSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get platform", fmt.Sprintf("platform %q does not exist", fsSlug), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get platform by fs slug: %w", err)
	}
	return platform, nil
}

// ListPlatforms returns every platform with its ROM count, ordered by name.
func (s *Store) ListPlatforms(ctx context.Context) ([]*Platform, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), platformSelect+` ORDER BY p.name, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var platforms []*Platform
	for rows.Next() {
		platform, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, platform)
	}
	return platforms, rows.Err()
}
