package catalog

import (
	"context"
	"fmt"
	"strings"

	"romshelf/internal/services"
)

func listAssets(ctx context.Context, q querier, romID, userID int64) ([]*Asset, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM rom_assets WHERE rom_id = ? AND user_id = ? ORDER BY kind, file_name, id`,
		romID, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// AddAsset records a save, state, or screenshot for the user. Re-adding the
// same file name refreshes its path and size.
func (s *Store) AddAsset(ctx context.Context, asset *Asset) (*Asset, error) {
	ctx = ensureContext(ctx)
	if asset == nil || !asset.Kind.Valid() || strings.TrimSpace(asset.FileName) == "" || asset.UserID <= 0 {
		return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "add asset", "asset needs a user, a known kind, and a file name", nil)
	}

	var added *Asset
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := getRom(ctx, tx.tx, 0, asset.RomID); err != nil {
			return err
		}
		timestamp := timestampNow()
		var id int64
		err := tx.tx.QueryRowContext(ctx,
			`INSERT INTO rom_assets (rom_id, user_id, kind, file_name, file_path, file_size_bytes, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(rom_id, user_id, kind, file_name) DO UPDATE SET
                file_path = excluded.file_path,
                file_size_bytes = excluded.file_size_bytes,
                updated_at = excluded.updated_at
            RETURNING id`,
			asset.RomID, asset.UserID, string(asset.Kind), strings.TrimSpace(asset.FileName),
			asset.FilePath, asset.FileSizeBytes, timestamp, timestamp,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
		added, err = scanAsset(tx.tx.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM rom_assets WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("reload asset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// ListAssets returns the user's assets for the ROM ordered by kind then name.
func (s *Store) ListAssets(ctx context.Context, romID, userID int64) ([]*Asset, error) {
	return listAssets(ensureContext(ctx), s.db, romID, userID)
}
