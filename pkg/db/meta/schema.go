package meta

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	package            BLOB PRIMARY KEY,
	name                TEXT NOT NULL,
	version_identifier  TEXT NOT NULL,
	source_release      INTEGER NOT NULL,
	build_release        INTEGER NOT NULL,
	architecture        TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	source_id           TEXT NOT NULL DEFAULT '',
	homepage            TEXT NOT NULL DEFAULT '',
	uri                 TEXT,
	hash                BLOB,
	download_size       INTEGER,
	repo_name           TEXT NOT NULL DEFAULT '',
	repo_priority       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS meta_name_idx ON meta(name);

CREATE TABLE IF NOT EXISTS meta_licenses (
	package BLOB NOT NULL REFERENCES meta(package) ON DELETE CASCADE,
	license TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS meta_licenses_package_idx ON meta_licenses(package);

CREATE TABLE IF NOT EXISTS meta_dependencies (
	package BLOB NOT NULL REFERENCES meta(package) ON DELETE CASCADE,
	kind    INTEGER NOT NULL,
	value   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS meta_dependencies_package_idx ON meta_dependencies(package);
CREATE INDEX IF NOT EXISTS meta_dependencies_value_idx ON meta_dependencies(kind, value);

CREATE TABLE IF NOT EXISTS meta_providers (
	package BLOB NOT NULL REFERENCES meta(package) ON DELETE CASCADE,
	kind    INTEGER NOT NULL,
	value   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS meta_providers_package_idx ON meta_providers(package);
CREATE INDEX IF NOT EXISTS meta_providers_value_idx ON meta_providers(kind, value);

CREATE TABLE IF NOT EXISTS meta_conflicts (
	package BLOB NOT NULL REFERENCES meta(package) ON DELETE CASCADE,
	kind    INTEGER NOT NULL,
	value   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS meta_conflicts_package_idx ON meta_conflicts(package);
`
