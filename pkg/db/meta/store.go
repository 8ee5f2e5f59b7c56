package meta

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mossforge/moss/pkg/db"
	"github.com/mossforge/moss/pkg/types"
)

// Store is the catalog of known packages, backed by the meta database named
// in spec.md §4.3.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the meta database at path and applies its schema.
func Open(path string) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("meta: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

type metaRow struct {
	Package           []byte         `db:"package"`
	Name              string         `db:"name"`
	VersionIdentifier string         `db:"version_identifier"`
	SourceRelease     int64          `db:"source_release"`
	BuildRelease      int64          `db:"build_release"`
	Architecture      string         `db:"architecture"`
	Summary           string         `db:"summary"`
	Description       string         `db:"description"`
	SourceID          string         `db:"source_id"`
	Homepage          string         `db:"homepage"`
	URI               sql.NullString `db:"uri"`
	Hash              []byte         `db:"hash"`
	DownloadSize      sql.NullInt64  `db:"download_size"`
	RepoName          string         `db:"repo_name"`
	RepoPriority      int            `db:"repo_priority"`
}

type kindValueRow struct {
	Package []byte `db:"package"`
	Kind    int    `db:"kind"`
	Value   string `db:"value"`
}

func toHash(b []byte) types.Hash {
	var h types.Hash
	copy(h[:], b)
	return h
}

func rowToPackage(row metaRow) *types.Package {
	p := &types.Package{
		Hash:          toHash(row.Package),
		Name:          row.Name,
		Version:       row.VersionIdentifier,
		SourceRelease: row.SourceRelease,
		BuildRelease:  row.BuildRelease,
		Architecture:  row.Architecture,
		Summary:       row.Summary,
		Description:   row.Description,
		SourceID:      row.SourceID,
		Homepage:      row.Homepage,
		RepoName:      row.RepoName,
		RepoPriority:  row.RepoPriority,
	}
	if row.URI.Valid {
		p.URI = row.URI.String
	}
	if row.DownloadSize.Valid {
		p.Size = row.DownloadSize.Int64
	}
	if len(row.Hash) > 0 {
		p.DownloadHash = toHash(row.Hash)
	}
	return p
}

// UpsertPackage inserts or replaces pkg's main row and its side-table rows.
func (s *Store) UpsertPackage(pkg *types.Package) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("meta: begin upsert: %w", err)
	}
	defer tx.Rollback()

	var hashArg, downloadHashArg interface{}
	hashArg = pkg.Hash[:]
	if !pkg.DownloadHash.IsZero() {
		downloadHashArg = pkg.DownloadHash[:]
	}

	_, err = tx.Exec(`
		INSERT INTO meta (package, name, version_identifier, source_release, build_release,
			architecture, summary, description, source_id, homepage, uri, hash, download_size,
			repo_name, repo_priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(package) DO UPDATE SET
			name=excluded.name, version_identifier=excluded.version_identifier,
			source_release=excluded.source_release, build_release=excluded.build_release,
			architecture=excluded.architecture, summary=excluded.summary,
			description=excluded.description, source_id=excluded.source_id,
			homepage=excluded.homepage, uri=excluded.uri, hash=excluded.hash,
			download_size=excluded.download_size, repo_name=excluded.repo_name,
			repo_priority=excluded.repo_priority
	`, hashArg, pkg.Name, pkg.Version, pkg.SourceRelease, pkg.BuildRelease,
		pkg.Architecture, pkg.Summary, pkg.Description, pkg.SourceID, pkg.Homepage,
		nullableString(pkg.URI), downloadHashArg, nullableSize(pkg.Size),
		pkg.RepoName, pkg.RepoPriority)
	if err != nil {
		return fmt.Errorf("meta: upsert meta row: %w", err)
	}

	for _, table := range []string{"meta_licenses", "meta_dependencies", "meta_providers", "meta_conflicts"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE package = ?", table), hashArg); err != nil {
			return fmt.Errorf("meta: clear %s: %w", table, err)
		}
	}

	for _, lic := range pkg.Licenses {
		if _, err := tx.Exec(`INSERT INTO meta_licenses (package, license) VALUES (?, ?)`, hashArg, lic); err != nil {
			return fmt.Errorf("meta: insert license: %w", err)
		}
	}
	for _, dep := range pkg.Depends {
		if _, err := tx.Exec(`INSERT INTO meta_dependencies (package, kind, value) VALUES (?, ?, ?)`,
			hashArg, int(dep.Kind), dep.Value); err != nil {
			return fmt.Errorf("meta: insert dependency: %w", err)
		}
	}
	for _, prov := range pkg.Provides {
		if _, err := tx.Exec(`INSERT INTO meta_providers (package, kind, value) VALUES (?, ?, ?)`,
			hashArg, int(prov.Kind), prov.Value); err != nil {
			return fmt.Errorf("meta: insert provider: %w", err)
		}
	}
	for _, conf := range pkg.Conflicts {
		if _, err := tx.Exec(`INSERT INTO meta_conflicts (package, kind, value) VALUES (?, ?, ?)`,
			hashArg, int(conf.Kind), conf.Value); err != nil {
			return fmt.Errorf("meta: insert conflict: %w", err)
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

func nullableSize(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

// GetPackage returns the package identified by hash, or nil if unknown.
func (s *Store) GetPackage(hash types.Hash) (*types.Package, error) {
	var row metaRow
	err := s.conn.Get(&row, `SELECT * FROM meta WHERE package = ?`, hash[:])
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("meta: get package: %w", err)
	}
	pkg := rowToPackage(row)
	if err := s.loadSides(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (s *Store) loadSides(pkg *types.Package) error {
	var licenses []string
	if err := s.conn.Select(&licenses, `SELECT license FROM meta_licenses WHERE package = ?`, pkg.Hash[:]); err != nil {
		return fmt.Errorf("meta: load licenses: %w", err)
	}
	pkg.Licenses = licenses

	var deps []kindValueRow
	if err := s.conn.Select(&deps, `SELECT package, kind, value FROM meta_dependencies WHERE package = ?`, pkg.Hash[:]); err != nil {
		return fmt.Errorf("meta: load dependencies: %w", err)
	}
	pkg.Depends = make([]types.Dependency, len(deps))
	for i, d := range deps {
		pkg.Depends[i] = types.Dependency{Kind: types.DependencyKind(d.Kind), Value: d.Value}
	}

	var provs []kindValueRow
	if err := s.conn.Select(&provs, `SELECT package, kind, value FROM meta_providers WHERE package = ?`, pkg.Hash[:]); err != nil {
		return fmt.Errorf("meta: load providers: %w", err)
	}
	pkg.Provides = make([]types.Provider, len(provs))
	for i, p := range provs {
		pkg.Provides[i] = types.Provider{Kind: types.DependencyKind(p.Kind), Value: p.Value}
	}

	var confs []kindValueRow
	if err := s.conn.Select(&confs, `SELECT package, kind, value FROM meta_conflicts WHERE package = ?`, pkg.Hash[:]); err != nil {
		return fmt.Errorf("meta: load conflicts: %w", err)
	}
	pkg.Conflicts = make([]types.Provider, len(confs))
	for i, c := range confs {
		pkg.Conflicts[i] = types.Provider{Kind: types.DependencyKind(c.Kind), Value: c.Value}
	}
	return nil
}

// ListPackages returns every known candidate: installed stones and
// repository catalog entries alike.
func (s *Store) ListPackages() ([]*types.Package, error) {
	var rows []metaRow
	if err := s.conn.Select(&rows, `SELECT * FROM meta ORDER BY name, source_release DESC, build_release DESC`); err != nil {
		return nil, fmt.Errorf("meta: list packages: %w", err)
	}
	out := make([]*types.Package, len(rows))
	for i, row := range rows {
		pkg := rowToPackage(row)
		if err := s.loadSides(pkg); err != nil {
			return nil, err
		}
		out[i] = pkg
	}
	return out, nil
}

// FindByName returns every candidate (across repositories and the local
// install) that provides the given package name.
func (s *Store) FindByName(name string) ([]*types.Package, error) {
	var rows []metaRow
	if err := s.conn.Select(&rows, `SELECT * FROM meta WHERE name = ?`, name); err != nil {
		return nil, fmt.Errorf("meta: find by name: %w", err)
	}
	out := make([]*types.Package, len(rows))
	for i, row := range rows {
		pkg := rowToPackage(row)
		if err := s.loadSides(pkg); err != nil {
			return nil, err
		}
		out[i] = pkg
	}
	return out, nil
}

// FindProviders returns every candidate that declares a provider of the
// given kind and value. It does not itself check the implicit "a package
// provides its own name" rule from spec.md §4.4 step 1 — callers combine
// this with FindByName for KindPackageName expressions.
func (s *Store) FindProviders(kind types.DependencyKind, value string) ([]*types.Package, error) {
	var rows []metaRow
	err := s.conn.Select(&rows, `
		SELECT m.* FROM meta m
		JOIN meta_providers p ON p.package = m.package
		WHERE p.kind = ? AND p.value = ?
	`, int(kind), value)
	if err != nil {
		return nil, fmt.Errorf("meta: find providers: %w", err)
	}
	out := make([]*types.Package, len(rows))
	for i, row := range rows {
		pkg := rowToPackage(row)
		if err := s.loadSides(pkg); err != nil {
			return nil, err
		}
		out[i] = pkg
	}
	return out, nil
}

// Search returns candidates whose name or summary match term, case-insensitively,
// with an exact name match ranked first.
func (s *Store) Search(term string) ([]*types.Package, error) {
	like := "%" + term + "%"
	var rows []metaRow
	err := s.conn.Select(&rows, `
		SELECT * FROM meta WHERE name LIKE ? OR summary LIKE ?
		ORDER BY CASE WHEN name = ? THEN 0 ELSE 1 END, name
	`, like, like, term)
	if err != nil {
		return nil, fmt.Errorf("meta: search: %w", err)
	}
	out := make([]*types.Package, len(rows))
	for i, row := range rows {
		pkg := rowToPackage(row)
		if err := s.loadSides(pkg); err != nil {
			return nil, err
		}
		out[i] = pkg
	}
	return out, nil
}

// DeletePackage removes pkg's row; its side-table rows cascade.
func (s *Store) DeletePackage(hash types.Hash) error {
	if _, err := s.conn.Exec(`DELETE FROM meta WHERE package = ?`, hash[:]); err != nil {
		return fmt.Errorf("meta: delete package: %w", err)
	}
	return nil
}
