package repository

// Schema returns the DDL for the bridge tables. All statements are
// idempotent; timestamps are stored as unix milliseconds UTC.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			connection_id TEXT NOT NULL,
			command_type TEXT NOT NULL,
			symbol TEXT NOT NULL,
			volume REAL NOT NULL DEFAULT 0,
			price REAL NOT NULL DEFAULT 0,
			stop_loss REAL NOT NULL DEFAULT 0,
			take_profit REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at INTEGER NOT NULL,
			leased_at INTEGER,
			executed_at INTEGER,
			ticket INTEGER NOT NULL DEFAULT 0,
			executed_price REAL NOT NULL DEFAULT 0,
			executed_volume REAL NOT NULL DEFAULT 0,
			error_code INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_conn_status
			ON commands (connection_id, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_status_leased
			ON commands (status, leased_at)`,
		`CREATE TABLE IF NOT EXISTS connections (
			id TEXT PRIMARY KEY,
			is_connected INTEGER NOT NULL DEFAULT 0,
			last_poll_at INTEGER,
			total_sent INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			avg_latency_ms REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			target TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_logs_request
			ON delivery_logs (request_id)`,
	}
}
