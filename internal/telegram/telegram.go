package telegram

import (
	"context"
	"io"

	"github.com/qualichat/qc-backend/internal/entity"
)

// ChatUsecase is the slice of the chat use case the bot needs.
type ChatUsecase interface {
	StartSession(ctx context.Context) (*entity.ChatSession, error)
	HandleTurn(ctx context.Context, sessionID string, req *entity.TurnRequest) (*entity.TurnReply, error)
	UploadDatasetStream(ctx context.Context, sessionID, filename string, size int64, r io.Reader) (*entity.ChatSession, error)
	ResetSession(ctx context.Context, sessionID string) error
	ExportReport(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, string, string, error)
}
