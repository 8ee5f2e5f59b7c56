package state

const schema = `
CREATE TABLE IF NOT EXISTS state (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	type        TEXT NOT NULL,
	created     INTEGER NOT NULL,
	summary     TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS state_selections (
	state_id   INTEGER NOT NULL REFERENCES state(id) ON DELETE CASCADE,
	package_id BLOB NOT NULL,
	explicit   INTEGER NOT NULL,
	reason     TEXT,
	PRIMARY KEY (state_id, package_id)
);

CREATE INDEX IF NOT EXISTS state_selections_package_idx ON state_selections(package_id);
`
