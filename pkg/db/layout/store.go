package layout

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mossforge/moss/pkg/db"
	"github.com/mossforge/moss/pkg/types"
)

// Store is the per-package filesystem layout database named in spec.md §4.3.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the layout database at path and applies its schema.
func Open(path string) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("layout: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

type layoutRow struct {
	ID          int64          `db:"id"`
	PackageID   []byte         `db:"package_id"`
	UID         uint32         `db:"uid"`
	GID         uint32         `db:"gid"`
	Mode        uint32         `db:"mode"`
	Tag         uint32         `db:"tag"`
	EntryType   uint8          `db:"entry_type"`
	EntryValue1 sql.NullString `db:"entry_value1"`
	EntryValue2 sql.NullString `db:"entry_value2"`
}

func rowToEntry(row layoutRow) types.LayoutEntry {
	e := types.LayoutEntry{
		ID:   row.ID,
		UID:  row.UID,
		GID:  row.GID,
		Mode: row.Mode,
		Tag:  row.Tag,
		Type: types.EntryType(row.EntryType),
	}
	copy(e.PackageID[:], row.PackageID)
	if row.EntryValue1.Valid {
		e.Path = row.EntryValue1.String
	}
	switch e.Type {
	case types.EntryRegular:
		if row.EntryValue2.Valid {
			if raw, err := hex.DecodeString(row.EntryValue2.String); err == nil && len(raw) == 16 {
				copy(e.ContentHash[:], raw)
			}
		}
	case types.EntrySymlink:
		if row.EntryValue2.Valid {
			e.SymlinkTarget = row.EntryValue2.String
		}
	}
	return e
}

// AddPackage inserts entries for a newly-absorbed package. Layout rows are
// append-only per package, per spec.md §4.3.
func (s *Store) AddPackage(packageID types.Hash, entries []types.LayoutEntry) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("layout: begin add: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		var value2 interface{}
		switch e.Type {
		case types.EntryRegular:
			value2 = hex.EncodeToString(e.ContentHash[:])
		case types.EntrySymlink:
			value2 = e.SymlinkTarget
		}
		_, err := tx.Exec(`
			INSERT INTO layout (package_id, uid, gid, mode, tag, entry_type, entry_value1, entry_value2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, packageID[:], e.UID, e.GID, e.Mode, e.Tag, uint8(e.Type), nullableString(e.Path), value2)
		if err != nil {
			return fmt.Errorf("layout: insert entry %q: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// EntriesFor returns every layout entry owned by packageID.
func (s *Store) EntriesFor(packageID types.Hash) ([]types.LayoutEntry, error) {
	var rows []layoutRow
	if err := s.conn.Select(&rows, `SELECT * FROM layout WHERE package_id = ? ORDER BY id`, packageID[:]); err != nil {
		return nil, fmt.Errorf("layout: entries for package: %w", err)
	}
	out := make([]types.LayoutEntry, len(rows))
	for i, row := range rows {
		out[i] = rowToEntry(row)
	}
	return out, nil
}

// RemovePackage deletes every layout row owned by packageID. There is no
// database-enforced cascade (see schema.go); the transaction engine calls
// this explicitly when a package leaves the selection set.
func (s *Store) RemovePackage(packageID types.Hash) error {
	if _, err := s.conn.Exec(`DELETE FROM layout WHERE package_id = ?`, packageID[:]); err != nil {
		return fmt.Errorf("layout: remove package: %w", err)
	}
	return nil
}

// AllContentHashes returns the set of every regular-file content hash
// referenced by any layout row of any package currently recorded. Combined
// across all live states by the caller, this backs the hash store's
// referenced_hashes() query from spec.md §4.2.
func (s *Store) AllContentHashes() (map[types.Hash]struct{}, error) {
	var hexValues []string
	err := s.conn.Select(&hexValues, `SELECT entry_value2 FROM layout WHERE entry_type = ? AND entry_value2 IS NOT NULL`, uint8(types.EntryRegular))
	if err != nil {
		return nil, fmt.Errorf("layout: all content hashes: %w", err)
	}
	out := make(map[types.Hash]struct{}, len(hexValues))
	for _, hv := range hexValues {
		raw, err := hex.DecodeString(hv)
		if err != nil || len(raw) != 16 {
			continue
		}
		var h types.Hash
		copy(h[:], raw)
		out[h] = struct{}{}
	}
	return out, nil
}

// PathsFor returns the set of paths packageID would occupy, used by the
// transaction engine's path-collision check across a staged selection set.
func (s *Store) PathsFor(packageID types.Hash) ([]string, error) {
	var paths []string
	err := s.conn.Select(&paths, `SELECT entry_value1 FROM layout WHERE package_id = ? AND entry_value1 IS NOT NULL`, packageID[:])
	if err != nil {
		return nil, fmt.Errorf("layout: paths for package: %w", err)
	}
	return paths, nil
}
