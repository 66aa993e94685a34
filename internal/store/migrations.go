package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create channels and bot history",
		SQL: `
			CREATE TABLE channels (
				channel_id    TEXT PRIMARY KEY,
				persona       TEXT NOT NULL,
				title         TEXT NOT NULL DEFAULT '',
				prompt_params TEXT,
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_channels_persona ON channels (persona);

			CREATE TABLE bot_history (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				channel_id  TEXT NOT NULL,
				chat_id     TEXT NOT NULL,
				role        TEXT NOT NULL,
				content     TEXT NOT NULL,
				tool_calls  TEXT,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_bot_history_dialog ON bot_history (channel_id, chat_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "create masters and promo codes",
		SQL: `
			CREATE TABLE masters (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				channel_id  TEXT NOT NULL,
				name        TEXT NOT NULL,
				specialty   TEXT NOT NULL DEFAULT '',
				schedule    TEXT,
				active      INTEGER NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_masters_channel ON masters (channel_id, active);

			CREATE TABLE promo_codes (
				code             TEXT PRIMARY KEY,
				channel_id       TEXT NOT NULL,
				discount_percent INTEGER NOT NULL DEFAULT 0,
				active           INTEGER NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_promo_channel ON promo_codes (channel_id, active);
		`,
	},
}
