package identity

// PostgresSchema creates the users and api_usage tables on Postgres.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		api_key       TEXT UNIQUE,
		permission    SMALLINT NOT NULL DEFAULT 0,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_usage (
		id             BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		api_key        TEXT,
		request_path   TEXT NOT NULL,
		request_method TEXT NOT NULL,
		request_time   TIMESTAMPTZ NOT NULL,
		request_ip     TEXT NOT NULL,
		status_code    SMALLINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS api_usage_user_time_idx ON api_usage (user_id, request_time DESC)`,
}

// SQLiteSchema creates the users and api_usage tables on SQLite.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		api_key       TEXT UNIQUE,
		permission    INTEGER NOT NULL DEFAULT 0,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_usage (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        INTEGER NOT NULL,
		api_key        TEXT,
		request_path   TEXT NOT NULL,
		request_method TEXT NOT NULL,
		request_time   TIMESTAMP NOT NULL,
		request_ip     TEXT NOT NULL,
		status_code    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS api_usage_user_time_idx ON api_usage (user_id, request_time DESC)`,
}
