package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ai2b/zena/internal/domain"
)

// Channel describes a served channel and the persona bound to it.
type Channel struct {
	ID           string
	Persona      string
	Title        string
	PromptParams map[string]string
}

// Master is one bookable specialist attached to a channel.
type Master struct {
	ID        int64
	ChannelID string
	Name      string
	Specialty string
	Schedule  string
}

// ErrChannelNotFound is returned when a channel ID is unknown.
var ErrChannelNotFound = fmt.Errorf("channel not found")

// DialogStore persists per-dialog history and channel metadata.
type DialogStore interface {
	Channel(ctx context.Context, channelID string) (Channel, error)
	UpsertChannel(ctx context.Context, ch Channel) error
	History(ctx context.Context, channelID, chatID string, limit int) ([]domain.Message, error)
	Append(ctx context.Context, channelID, chatID string, msg domain.Message) error
	ClearHistory(ctx context.Context, channelID, chatID string) error
	Masters(ctx context.Context, channelID string) ([]Master, error)
}

// SQLiteDialogStore implements DialogStore backed by SQLite.
type SQLiteDialogStore struct {
	db *DB
}

// NewSQLiteDialogStore creates a dialog store using the given database.
func NewSQLiteDialogStore(db *DB) *SQLiteDialogStore {
	return &SQLiteDialogStore{db: db}
}

// Channel returns the channel row, or ErrChannelNotFound.
func (s *SQLiteDialogStore) Channel(ctx context.Context, channelID string) (Channel, error) {
	var ch Channel
	var params sql.NullString
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT channel_id, persona, title, prompt_params FROM channels WHERE channel_id = ?`,
		channelID,
	).Scan(&ch.ID, &ch.Persona, &ch.Title, &params)
	if err == sql.ErrNoRows {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	if err != nil {
		return Channel{}, fmt.Errorf("loading channel %s: %w", channelID, err)
	}

	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &ch.PromptParams); err != nil {
			s.db.log.Warn().Err(err).Str("channel", channelID).Msg("invalid prompt params, ignoring")
		}
	}
	return ch, nil
}

// UpsertChannel inserts or replaces a channel row.
func (s *SQLiteDialogStore) UpsertChannel(ctx context.Context, ch Channel) error {
	var params sql.NullString
	if len(ch.PromptParams) > 0 {
		data, err := json.Marshal(ch.PromptParams)
		if err != nil {
			return fmt.Errorf("marshaling prompt params: %w", err)
		}
		params = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO channels (channel_id, persona, title, prompt_params)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
		   persona = excluded.persona,
		   title = excluded.title,
		   prompt_params = excluded.prompt_params`,
		ch.ID, ch.Persona, ch.Title, params,
	)
	if err != nil {
		return fmt.Errorf("upserting channel %s: %w", ch.ID, err)
	}
	return nil
}

// History returns up to limit most recent messages of a dialog in
// chronological order. A limit of 0 returns the whole history.
func (s *SQLiteDialogStore) History(ctx context.Context, channelID, chatID string, limit int) ([]domain.Message, error) {
	query := `SELECT role, content, tool_calls FROM bot_history
		 WHERE channel_id = ? AND chat_id = ? ORDER BY id`
	args := []any{channelID, chatID}
	if limit > 0 {
		// Window to the tail of the dialog, still returned oldest first
		query = `SELECT role, content, tool_calls FROM (
			 SELECT id, role, content, tool_calls FROM bot_history
			 WHERE channel_id = ? AND chat_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var toolCallsJSON sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCallsJSON); err != nil {
			return nil, err
		}
		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Append adds a message to a dialog.
func (s *SQLiteDialogStore) Append(ctx context.Context, channelID, chatID string, msg domain.Message) error {
	var toolCallsJSON sql.NullString
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("marshaling tool calls: %w", err)
		}
		toolCallsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO bot_history (channel_id, chat_id, role, content, tool_calls)
		 VALUES (?, ?, ?, ?, ?)`,
		channelID, chatID, msg.Role, msg.Content, toolCallsJSON,
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// ClearHistory deletes all messages of a dialog. Used by the stop word.
func (s *SQLiteDialogStore) ClearHistory(ctx context.Context, channelID, chatID string) error {
	_, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM bot_history WHERE channel_id = ? AND chat_id = ?`,
		channelID, chatID,
	)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Masters returns the active masters of a channel.
func (s *SQLiteDialogStore) Masters(ctx context.Context, channelID string) ([]Master, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, channel_id, name, specialty, COALESCE(schedule, '')
		 FROM masters WHERE channel_id = ? AND active = 1 ORDER BY name`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading masters: %w", err)
	}
	defer rows.Close()

	var masters []Master
	for rows.Next() {
		var m Master
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Name, &m.Specialty, &m.Schedule); err != nil {
			return nil, err
		}
		masters = append(masters, m)
	}
	return masters, rows.Err()
}

// AddMaster inserts a master row. Used by seeding and tests.
func (s *SQLiteDialogStore) AddMaster(ctx context.Context, m Master) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO masters (channel_id, name, specialty, schedule) VALUES (?, ?, ?, ?)`,
		m.ChannelID, m.Name, m.Specialty, m.Schedule,
	)
	if err != nil {
		return fmt.Errorf("adding master: %w", err)
	}
	return nil
}
