package chat

import "github.com/qualichat/qc-backend/internal/entity"

// toSessionDTO converts the ChatSession entity to its API view
func toSessionDTO(session *entity.ChatSession) *entity.ChatSessionDTO {
	dto := &entity.ChatSessionDTO{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
	}
	if session.DatasetName != "" {
		dto.Dataset = &entity.DatasetSummaryDTO{
			Filename: session.DatasetName,
			Rows:     session.DatasetRows,
			Entities: session.Entities,
		}
	}
	return dto
}

func toSessionWithHistoryDTO(session *entity.ChatSession, messages []*entity.Message) *entity.SessionWithHistoryDTO {
	dto := &entity.SessionWithHistoryDTO{
		ChatSessionDTO: *toSessionDTO(session),
		Messages:       make([]entity.MessageDTO, 0, len(messages)),
	}
	for _, msg := range messages {
		dto.Messages = append(dto.Messages, entity.MessageDTO{
			ID:        msg.ID,
			Role:      msg.Role,
			Text:      msg.Text,
			Chart:     msg.Chart,
			CreatedAt: msg.CreatedAt,
		})
	}
	return dto
}
