package chat

import (
	"context"
	"mime/multipart"

	"github.com/qualichat/qc-backend/internal/entity"
)

type ChatUsecase interface {
	StartSession(ctx context.Context) (*entity.ChatSession, error)
	GetSession(ctx context.Context, sessionID string) (*entity.ChatSession, []*entity.Message, error)
	UploadDataset(ctx context.Context, sessionID string, fh *multipart.FileHeader) (*entity.ChatSession, error)
	HandleTurn(ctx context.Context, sessionID string, req *entity.TurnRequest) (*entity.TurnReply, error)
	ResetSession(ctx context.Context, sessionID string) error
	ExportReport(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, string, string, error)
}
