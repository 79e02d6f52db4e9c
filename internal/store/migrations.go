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
		Name:    "create chats and messages",
		SQL: `
			CREATE TABLE chats (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				title       TEXT NOT NULL,
				visibility  TEXT NOT NULL DEFAULT 'private',
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_chats_user ON chats (user_id, created_at);

			CREATE TABLE messages (
				id          TEXT PRIMARY KEY,
				chat_id     TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
				role        TEXT NOT NULL,
				content     TEXT NOT NULL DEFAULT '',
				parts       TEXT NOT NULL DEFAULT '[]',
				attachments TEXT NOT NULL DEFAULT '[]',
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_messages_chat ON messages (chat_id, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create mcp servers",
		SQL: `
			CREATE TABLE mcp_servers (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL,
				name         TEXT NOT NULL,
				url          TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				auth_type    TEXT NOT NULL DEFAULT 'none',
				credentials  TEXT,
				remote_id    TEXT NOT NULL DEFAULT '',
				is_active    INTEGER NOT NULL DEFAULT 1,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			);

			CREATE INDEX idx_mcp_servers_user ON mcp_servers (user_id, is_active);
		`,
	},
}
