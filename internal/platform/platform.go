// Package platform describes the chat capabilities the bot consumes. The
// discord subpackage implements them; tests use platformtest fakes.
package platform

import (
	"context"
	"errors"
)

// MaxMessageLength is the longest message body the platform accepts.
const MaxMessageLength = 2000

var ErrUnknownInteraction = errors.New("unknown interaction")

// Attachment is a file attached to a message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// Message is a message read from channel history.
type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	Content     string
	Attachments []Attachment
}

// File is an upload attached to an outgoing message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// EmbedField is a name/value row of an embed.
type EmbedField struct {
	Name  string
	Value string
}

// Embed is a structured card.
type Embed struct {
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	Fields       []EmbedField
}

// OutgoingMessage is a message to post into a channel.
type OutgoingMessage struct {
	Content    string
	Files      []File
	Embeds     []Embed
	Components []Row
}

// Channels reads and writes channel messages.
type Channels interface {
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
}

// Roles grants and revokes member roles.
type Roles interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// Client is the full capability set.
type Client interface {
	Channels
	Roles
}
