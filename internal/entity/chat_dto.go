package entity

import "time"

// ChatSessionDTO is the API view of a session.
type ChatSessionDTO struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Dataset   *DatasetSummaryDTO `json:"dataset,omitempty"`
}

// DatasetSummaryDTO summarizes the currently loaded spreadsheet.
type DatasetSummaryDTO struct {
	Filename string   `json:"filename"`
	Rows     int      `json:"rows"`
	Entities []string `json:"entities"`
}

// MessageDTO is one transcript entry in API responses.
type MessageDTO struct {
	ID        string           `json:"id"`
	Role      MessageRole      `json:"role"`
	Text      string           `json:"text"`
	Chart     *ChartDescriptor `json:"chart,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SessionWithHistoryDTO is the session summary plus its transcript.
type SessionWithHistoryDTO struct {
	ChatSessionDTO
	Messages []MessageDTO `json:"messages"`
}
