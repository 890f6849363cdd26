package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qualichat/qc-backend/internal/entity"
)

// MessageRepository persists the chat transcript. The transcript is
// an audit log and the source of report exports; live session state
// never lives here.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *entity.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]*entity.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
}

var _ MessageRepository = &MessagePostgres{}

// MessagePostgres implements MessageRepository using PostgreSQL.
type MessagePostgres struct {
	db *pgxpool.Pool
}

func NewMessagePostgres(db *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{db: db}
}

func (r *MessagePostgres) CreateMessage(ctx context.Context, msg *entity.Message) error {
	chart, err := chartToJSON(msg.Chart)
	if err != nil {
		return fmt.Errorf("encode chart descriptor: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO messages (id, session_id, role, text, chart, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Text, chart, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessagePostgres) ListMessages(ctx context.Context, sessionID string) ([]*entity.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, role, text, chart, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		var (
			msg   entity.Message
			role  string
			chart []byte
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Text, &chart, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = entity.MessageRole(role)
		if msg.Chart, err = chartFromJSON(chart); err != nil {
			return nil, fmt.Errorf("decode chart descriptor: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func (r *MessagePostgres) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = $1`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func chartToJSON(chart *entity.ChartDescriptor) ([]byte, error) {
	if chart == nil {
		return nil, nil
	}
	return json.Marshal(chart)
}

func chartFromJSON(raw []byte) (*entity.ChartDescriptor, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var chart entity.ChartDescriptor
	if err := json.Unmarshal(raw, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}
