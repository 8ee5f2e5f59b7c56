package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mossforge/moss/pkg/db"
	"github.com/mossforge/moss/pkg/types"
)

// Store is the state database named in spec.md §4.3.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the state database at path and applies its schema.
func Open(path string) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

type stateRow struct {
	ID          int64          `db:"id"`
	Type        string         `db:"type"`
	Created     int64          `db:"created"`
	Summary     sql.NullString `db:"summary"`
	Description sql.NullString `db:"description"`
}

type selectionRow struct {
	StateID   int64  `db:"state_id"`
	PackageID []byte `db:"package_id"`
	Explicit  bool   `db:"explicit"`
	Reason    sql.NullString `db:"reason"`
}

// Commit writes a new, immutable state row with its selections and returns
// the assigned state ID. created is a now() timestamp the caller supplies so
// this package does not itself call time.Now() inside a transaction.
func (s *Store) Commit(st *types.State, created time.Time) (int64, error) {
	tx, err := s.conn.Beginx()
	if err != nil {
		return 0, fmt.Errorf("state: begin commit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO state (type, created, summary, description) VALUES (?, ?, ?, ?)
	`, string(st.Kind), created.Unix(), nullableString(st.Summary), nullableString(st.Description))
	if err != nil {
		return 0, fmt.Errorf("state: insert state row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("state: read new state id: %w", err)
	}

	for _, sel := range st.Selections {
		_, err := tx.Exec(`
			INSERT INTO state_selections (state_id, package_id, explicit, reason) VALUES (?, ?, ?, ?)
		`, id, sel.PackageHash[:], sel.Explicit, nullableString(sel.Reason))
		if err != nil {
			return 0, fmt.Errorf("state: insert selection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("state: commit: %w", err)
	}
	return id, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func rowToState(row stateRow, selections []selectionRow) *types.State {
	st := &types.State{
		ID:      row.ID,
		Kind:    types.TransactionKind(row.Type),
		Created: time.Unix(row.Created, 0).UTC(),
	}
	if row.Summary.Valid {
		st.Summary = row.Summary.String
	}
	if row.Description.Valid {
		st.Description = row.Description.String
	}
	st.Selections = make([]types.Selection, len(selections))
	for i, sel := range selections {
		var h types.Hash
		copy(h[:], sel.PackageID)
		reason := ""
		if sel.Reason.Valid {
			reason = sel.Reason.String
		}
		st.Selections[i] = types.Selection{PackageHash: h, Explicit: sel.Explicit, Reason: reason}
	}
	return st
}

// Get returns the state identified by id, or nil if it does not exist.
func (s *Store) Get(id int64) (*types.State, error) {
	var row stateRow
	err := s.conn.Get(&row, `SELECT * FROM state WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: get state %d: %w", id, err)
	}
	var sels []selectionRow
	if err := s.conn.Select(&sels, `SELECT * FROM state_selections WHERE state_id = ?`, id); err != nil {
		return nil, fmt.Errorf("state: load selections for %d: %w", id, err)
	}
	return rowToState(row, sels), nil
}

// List returns every state, oldest first.
func (s *Store) List() ([]*types.State, error) {
	var rows []stateRow
	if err := s.conn.Select(&rows, `SELECT * FROM state ORDER BY id`); err != nil {
		return nil, fmt.Errorf("state: list: %w", err)
	}
	out := make([]*types.State, len(rows))
	for i, row := range rows {
		var sels []selectionRow
		if err := s.conn.Select(&sels, `SELECT * FROM state_selections WHERE state_id = ?`, row.ID); err != nil {
			return nil, fmt.Errorf("state: load selections for %d: %w", row.ID, err)
		}
		out[i] = rowToState(row, sels)
	}
	return out, nil
}

// Latest returns the most recently committed state, or nil if none exists.
func (s *Store) Latest() (*types.State, error) {
	var row stateRow
	err := s.conn.Get(&row, `SELECT * FROM state ORDER BY id DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: latest: %w", err)
	}
	var sels []selectionRow
	if err := s.conn.Select(&sels, `SELECT * FROM state_selections WHERE state_id = ?`, row.ID); err != nil {
		return nil, fmt.Errorf("state: load selections for %d: %w", row.ID, err)
	}
	return rowToState(row, sels), nil
}

// Delete removes a state row and its selections, used by the retention
// sweep to drop states older than the configured retention count.
func (s *Store) Delete(id int64) error {
	if _, err := s.conn.Exec(`DELETE FROM state WHERE id = ?`, id); err != nil {
		return fmt.Errorf("state: delete %d: %w", id, err)
	}
	return nil
}
