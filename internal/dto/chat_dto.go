package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	ClientKey string `json:"client_key" validate:"required,max=128"`
	Title     string `json:"title" validate:"max=200"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AskRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Question      string    `json:"question" validate:"required,max=2000"`
}

type SourceDTO struct {
	Id       string  `json:"id"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
	Strategy string  `json:"strategy"`
}

type LatencyDTO struct {
	ClassificationMs int64 `json:"classification_ms"`
	RetrievalMs      int64 `json:"retrieval_ms"`
	GenerationMs     int64 `json:"generation_ms"`
	TotalMs          int64 `json:"total_ms"`
}

type AskResponse struct {
	ChatSessionId   uuid.UUID      `json:"chat_session_id"`
	Answer          string         `json:"answer"`
	Category        string         `json:"category"`
	Confidence      float64        `json:"confidence"`
	Method          string         `json:"method"`
	Sources         []SourceDTO    `json:"sources"`
	CategoryUsage   map[string]int `json:"category_usage,omitempty"`
	Latency         LatencyDTO     `json:"latency"`
	GenerationCalls int            `json:"generation_calls"`
	Degraded        bool           `json:"degraded"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}

// PublishIngestDocumentMessage is the payload queued for asynchronous
// document ingestion.
type PublishIngestDocumentMessage struct {
	Collection string `json:"collection"`
	Content    string `json:"content"`
	CaseNumber string `json:"case_number,omitempty"`
	Court      string `json:"court,omitempty"`
	Article    string `json:"article,omitempty"`
	Page       int    `json:"page,omitempty"`
}
