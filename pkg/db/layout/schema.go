package layout

// Unlike meta's side tables, layout has no FK back to a packages table:
// layout.db is a physically separate sqlite file from meta.db (spec.md
// §4.3's "physically separate so each can migrate independently"), and
// sqlite foreign keys cannot span connections to different database files.
// Cascade-on-removal is therefore enforced by RemovePackage, not by the
// schema.
const schema = `
CREATE TABLE IF NOT EXISTS layout (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	package_id   BLOB NOT NULL,
	uid          INTEGER NOT NULL,
	gid          INTEGER NOT NULL,
	mode         INTEGER NOT NULL,
	tag          INTEGER NOT NULL DEFAULT 0,
	entry_type   INTEGER NOT NULL,
	entry_value1 TEXT,
	entry_value2 TEXT
);

CREATE INDEX IF NOT EXISTS layout_package_idx ON layout(package_id);
CREATE INDEX IF NOT EXISTS layout_path_idx ON layout(entry_value1);
`
