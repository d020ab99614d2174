package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"romshelf/internal/services"
)

// siblings returns the other ROMs of rom's group ordered by id. A ROM whose
// tag-free name is empty has no siblings.
func siblings(ctx context.Context, q querier, rom *Rom, userID int64) ([]*Rom, error) {
	if rom == nil || strings.TrimSpace(rom.FileNameNoTags) == "" {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		romSelect+` WHERE r.platform_id = ? AND r.file_name_no_tags = ? AND r.id != ? ORDER BY r.id`,
		userID, rom.PlatformID, rom.FileNameNoTags, rom.ID)
	if err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	roms, err := scanRoms(rows)
	if err != nil {
		return nil, fmt.Errorf("scan siblings: %w", err)
	}
	return roms, nil
}

func findProps(ctx context.Context, q querier, romID, userID int64) (*UserRomProps, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+propsColumns+` FROM rom_user_props WHERE rom_id = ? AND user_id = ?`, romID, userID)
	props, err := scanProps(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get props: %w", err)
	}
	return props, nil
}

func getOrCreateProps(ctx context.Context, q querier, romID, userID int64) (*UserRomProps, error) {
	if _, err := getRom(ctx, q, 0, romID); err != nil {
		return nil, err
	}
	timestamp := timestampNow()
	if _, err := q.ExecContext(ctx,
		`INSERT INTO rom_user_props (rom_id, user_id, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(rom_id, user_id) DO NOTHING`,
		romID, userID, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert props: %w", err)
	}
	props, err := findProps(ctx, q, romID, userID)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, fmt.Errorf("props for rom %d user %d missing after insert", romID, userID)
	}
	return props, nil
}

// clearGroupMain resets the user's main flag on every other member of rom's
// sibling group.
func clearGroupMain(ctx context.Context, q querier, rom *Rom, userID int64) error {
	if strings.TrimSpace(rom.FileNameNoTags) == "" {
		return nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE rom_user_props SET is_main_sibling = 0, updated_at = ?
        WHERE user_id = ? AND is_main_sibling != 0 AND rom_id IN (
            SELECT id FROM roms WHERE platform_id = ? AND file_name_no_tags = ? AND id != ?
        )`,
		timestampNow(), userID, rom.PlatformID, rom.FileNameNoTags, rom.ID,
	)
	if err != nil {
		return fmt.Errorf("reset sibling main flags: %w", err)
	}
	return nil
}

// GetSiblings returns the other members of rom's sibling group with userID's
// main flags overlaid.
func (s *Store) GetSiblings(ctx context.Context, rom *Rom, userID int64) ([]*Rom, error) {
	return siblings(ensureContext(ctx), s.db, rom, userID)
}

// SetMainSibling marks romID as userID's preferred variant and clears the
// flag on the rest of its group, all in one transaction.
func (s *Store) SetMainSibling(ctx context.Context, romID, userID int64) error {
	ctx = ensureContext(ctx)
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.SetMainSibling(ctx, romID, userID)
	})
}

// GetOrCreateProps returns the user's props row for the ROM, creating an
// empty one when absent.
func (s *Store) GetOrCreateProps(ctx context.Context, romID, userID int64) (*UserRomProps, error) {
	ctx = ensureContext(ctx)
	var props *UserRomProps
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		props, err = tx.GetOrCreateProps(ctx, romID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// UpdateProps applies a partial props update for the user.
func (s *Store) UpdateProps(ctx context.Context, romID, userID int64, update PropsUpdate) (*UserRomProps, error) {
	ctx = ensureContext(ctx)
	var props *UserRomProps
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		props, err = tx.UpdateProps(ctx, romID, userID, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// GetSiblings lists the siblings of rom inside the transaction.
func (t *Tx) GetSiblings(ctx context.Context, rom *Rom, userID int64) ([]*Rom, error) {
	return siblings(ctx, t.tx, rom, userID)
}

// GetOrCreateProps is the transactional form of Store.GetOrCreateProps.
func (t *Tx) GetOrCreateProps(ctx context.Context, romID, userID int64) (*UserRomProps, error) {
	return getOrCreateProps(ctx, t.tx, romID, userID)
}

// SetMainSibling is the transactional form of Store.SetMainSibling.
func (t *Tx) SetMainSibling(ctx context.Context, romID, userID int64) error {
	rom, err := getRom(ctx, t.tx, 0, romID)
	if err != nil {
		return err
	}
	if err := clearGroupMain(ctx, t.tx, rom, userID); err != nil {
		return err
	}
	timestamp := timestampNow()
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO rom_user_props (rom_id, user_id, is_main_sibling, created_at, updated_at)
        VALUES (?, ?, 1, ?, ?)
        ON CONFLICT(rom_id, user_id) DO UPDATE SET
            is_main_sibling = 1,
            updated_at = excluded.updated_at`,
		romID, userID, timestamp, timestamp,
	); err != nil {
		return fmt.Errorf("set main sibling: %w", err)
	}
	return nil
}

// UpdateProps is the transactional form of Store.UpdateProps.
func (t *Tx) UpdateProps(ctx context.Context, romID, userID int64, update PropsUpdate) (*UserRomProps, error) {
	if userID <= 0 {
		return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "update props", "user id is required", nil)
	}
	props, err := getOrCreateProps(ctx, t.tx, romID, userID)
	if err != nil {
		return nil, err
	}

	if update.IsMainSibling != nil && *update.IsMainSibling {
		if err := t.SetMainSibling(ctx, romID, userID); err != nil {
			return nil, err
		}
	}

	var (
		sets []string
		args []any
	)
	if update.NoteRawMarkdown != nil {
		sets = append(sets, "note_raw_markdown = ?")
		args = append(args, *update.NoteRawMarkdown)
	}
	if update.NoteIsPublic != nil {
		sets = append(sets, "note_is_public = ?")
		args = append(args, boolToInt(*update.NoteIsPublic))
	}
	if update.IsMainSibling != nil && !*update.IsMainSibling {
		sets = append(sets, "is_main_sibling = 0")
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, timestampNow(), props.ID)
		if _, err := t.tx.ExecContext(ctx,
			`UPDATE rom_user_props SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return nil, fmt.Errorf("update props: %w", err)
		}
	}
	return findProps(ctx, t.tx, romID, userID)
}
