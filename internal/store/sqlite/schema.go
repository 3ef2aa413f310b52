package sqlite

// schema is applied on open. Timestamps that participate in ordering
// (messages.created_at, conversations.updated_at) are always bound from Go
// in UTC so their text representation sorts chronologically.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_a     INTEGER NOT NULL,
	user_b     INTEGER NOT NULL,
	pair_key   TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (user_a) REFERENCES users(id),
	FOREIGN KEY (user_b) REFERENCES users(id),
	CHECK (user_a < user_b)
);

CREATE TABLE IF NOT EXISTS conversation_pins (
	conversation_id INTEGER NOT NULL,
	user_id         INTEGER NOT NULL,
	pinned          BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, user_id),
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id  INTEGER NOT NULL,
	sender_id        INTEGER NOT NULL,
	kind             TEXT NOT NULL,
	content          TEXT NOT NULL DEFAULT '',
	media_url        TEXT,
	media_type       TEXT,
	voice_url        TEXT,
	duration_seconds INTEGER,
	is_read          BOOLEAN NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id, sender_id, is_read);
CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations(user_a, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations(user_b, updated_at DESC);
`
