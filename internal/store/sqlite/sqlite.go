package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/duetlink/matchtalk/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ConversationStore implementation ====

// CreateOrGetConversation returns the conversation for the unordered pair
// {userA, userB}, creating it if absent. The unique pair_key index arbitrates
// concurrent callers: both end up reading the single surviving row.
func (s *SQLiteStore) CreateOrGetConversation(ctx context.Context, userA, userB int64) (*store.Conversation, error) {
	pairKey := store.PairKey(userA, userB)
	if userA > userB {
		userA, userB = userB, userA
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO conversations (user_a, user_b, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, userA, userB, pairKey, now, now); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.getConversationByPairKey(ctx, pairKey)
}

func (s *SQLiteStore) getConversationByPairKey(ctx context.Context, pairKey string) (*store.Conversation, error) {
	query := `
		SELECT id, user_a, user_b, pair_key, created_at, updated_at
		FROM conversations
		WHERE pair_key = ?
	`
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, query, pairKey).Scan(
		&conv.ID,
		&conv.UserAID,
		&conv.UserBID,
		&conv.PairKey,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*store.Conversation, error) {
	query := `
		SELECT id, user_a, user_b, pair_key, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserAID,
		&conv.UserBID,
		&conv.PairKey,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	return &conv, nil
}

// ListConversationsForUser lists the conversations userID participates in,
// most recently updated first.
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	query := `
		SELECT id, user_a, user_b, pair_key, created_at, updated_at
		FROM conversations
		WHERE user_a = ? OR user_b = ?
		ORDER BY updated_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*store.Conversation
	for rows.Next() {
		var conv store.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserAID, &conv.UserBID, &conv.PairKey, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}

	return conversations, rows.Err()
}

// DeleteConversation removes a conversation, its messages and its pin flags
// in one transaction.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback is called on defer, error is not critical here
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_pins WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete pins: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetPinned sets the per-user pin flag on a conversation.
func (s *SQLiteStore) SetPinned(ctx context.Context, conversationID, userID int64, pinned bool) error {
	query := `
		INSERT INTO conversation_pins (conversation_id, user_id, pinned)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id, user_id) DO UPDATE SET pinned = excluded.pinned
	`
	_, err := s.db.ExecContext(ctx, query, conversationID, userID, pinned)
	if err != nil {
		return fmt.Errorf("upsert pin: %w", err)
	}
	return nil
}

// IsPinned reports the per-user pin flag. A missing row means unpinned.
func (s *SQLiteStore) IsPinned(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		SELECT pinned FROM conversation_pins
		WHERE conversation_id = ? AND user_id = ?
	`
	var pinned bool
	err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&pinned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query pin: %w", err)
	}
	return pinned, nil
}

// TouchConversation moves updated_at forward to at. The guard keeps the
// column monotonic under concurrent senders.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE conversations
		SET updated_at = ?
		WHERE id = ? AND updated_at < ?
	`
	at = at.UTC()
	if _, err := s.db.ExecContext(ctx, query, at, id, at); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message to storage.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	} else {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}
	msg.IsRead = false

	query := `
		INSERT INTO messages (conversation_id, sender_id, kind, content, media_url, media_type, voice_url, duration_seconds, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		string(msg.Kind),
		msg.Text,
		nullString(msg.MediaURL),
		nullString(string(msg.MediaType)),
		nullString(msg.VoiceURL),
		nullInt(msg.DurationSeconds),
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

const messageColumns = `id, conversation_id, sender_id, kind, content, media_url, media_type, voice_url, duration_seconds, is_read, created_at`

func scanMessage(scan func(dest ...any) error) (*store.Message, error) {
	var msg store.Message
	var kind string
	var mediaURL, mediaType, voiceURL sql.NullString
	var duration sql.NullInt64

	if err := scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&kind,
		&msg.Text,
		&mediaURL,
		&mediaType,
		&voiceURL,
		&duration,
		&msg.IsRead,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	msg.Kind = store.MessageKind(kind)
	if mediaURL.Valid {
		msg.MediaURL = mediaURL.String
	}
	if mediaType.Valid {
		msg.MediaType = store.MediaType(mediaType.String)
	}
	if voiceURL.Valid {
		msg.VoiceURL = voiceURL.String
	}
	if duration.Valid {
		msg.DurationSeconds = int(duration.Int64)
	}

	return &msg, nil
}

// ListMessages retrieves a conversation's messages in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// LastMessage returns the most recent message of a conversation, or nil if
// the conversation has none.
func (s *SQLiteStore) LastMessage(ctx context.Context, conversationID int64) (*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, conversationID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return msg, nil
}

// CountUnread counts unread messages addressed to userID in a conversation.
func (s *SQLiteStore) CountUnread(ctx context.Context, conversationID, userID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = ? AND sender_id != ? AND is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// TotalUnread counts unread messages addressed to userID across all of their
// conversations. Derived on every call rather than cached, so concurrent
// sends cannot produce lost updates.
func (s *SQLiteStore) TotalUnread(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE (c.user_a = ? OR c.user_b = ?)
		  AND m.sender_id != ?
		  AND m.is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, userID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count total unread: %w", err)
	}
	return count, nil
}

// MarkConversationRead marks every inbound message of the conversation as read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID, userID int64) error {
	query := `
		UPDATE messages
		SET is_read = 1
		WHERE conversation_id = ? AND sender_id != ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkConversationUnread flips the latest inbound message back to unread.
func (s *SQLiteStore) MarkConversationUnread(ctx context.Context, conversationID, userID int64) error {
	query := `
		UPDATE messages
		SET is_read = 0
		WHERE id = (
			SELECT id FROM messages
			WHERE conversation_id = ? AND sender_id != ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`
	if _, err := s.db.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("mark unread: %w", err)
	}
	return nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
