package entity

import "time"

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// ChatSession is the API view of one chat session.
type ChatSession struct {
	ID        string
	CreatedAt time.Time

	// Dataset summary, zero-valued until a spreadsheet is uploaded.
	DatasetName string
	DatasetRows int
	Entities    []string
}

// Message is one persisted transcript entry.
type Message struct {
	ID        string
	SessionID string
	Role      MessageRole
	Text      string
	Chart     *ChartDescriptor
	CreatedAt time.Time
}

// DatasetMeta is the persisted record of one uploaded spreadsheet.
type DatasetMeta struct {
	ID         string
	SessionID  string
	Filename   string
	Rows       int
	Columns    []string
	Mapping    ColumnMapping
	UploadedAt time.Time
}

// TurnRequest is the body of a chat message call.
type TurnRequest struct {
	Text string `json:"text"`
}

// TurnReply is the outcome of one handled turn: the composed answer,
// an optional chart descriptor, and an optional rendered image when a
// chart renderer is configured and succeeded.
type TurnReply struct {
	Text  string           `json:"text"`
	Chart *ChartDescriptor `json:"chart,omitempty"`
	Image *RenderedChart   `json:"image,omitempty"`
}
