package models

import "time"

// Answer labels for choice questions.
const (
	ChoiceLabel    = "Choice"
	SelectionLabel = "Selection"
)

// Answer is one (label, value) pair collected by a session.
type Answer struct {
	Label string `json:"q"`
	Value string `json:"a"`
}

// Member identifies the person being verified.
type Member struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Mention returns the chat mention for the member.
func (m Member) Mention() string {
	return "<@" + m.ID + ">"
}

// AuditRecord summarises a completed verification.
type AuditRecord struct {
	SessionID   string    `json:"session_id"`
	GuildID     string    `json:"guild_id"`
	Member      Member    `json:"member"`
	Answers     []Answer  `json:"answers"`
	CompletedAt time.Time `json:"completed_at"`
}
