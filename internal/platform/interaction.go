package platform

import (
	"context"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

// InteractionKind distinguishes what the member did.
type InteractionKind int

const (
	KindCommand InteractionKind = iota + 1
	KindComponent
	KindModalSubmit
)

// Interaction is a member action delivered by the platform.
type Interaction struct {
	ID        string
	Kind      InteractionKind
	GuildID   string
	GuildName string
	ChannelID string
	Member    models.Member
	// IsAdmin is true when the member holds the administrator permission.
	IsAdmin bool

	// Command interactions.
	CommandName string
	Options     map[string]string

	// Component and modal interactions.
	CustomID string
	Values   []string
	Fields   map[string]string
}

// CanOpenModal reports whether a modal may be the response to ix.
func (ix *Interaction) CanOpenModal() bool {
	return ix.Kind == KindCommand || ix.Kind == KindComponent
}

// Reply is the content of an interaction response.
type Reply struct {
	Content    string
	Ephemeral  bool
	Embeds     []Embed
	Components []Row
	// ClearComponents removes controls when editing a message.
	ClearComponents bool
}

// Responder answers one interaction. Exactly one of Reply, Defer, Update,
// DeferUpdate or Modal may be called first; Edit and Followup come after.
type Responder interface {
	Reply(ctx context.Context, r Reply) error
	Defer(ctx context.Context, ephemeral bool) error
	Update(ctx context.Context, r Reply) error
	DeferUpdate(ctx context.Context) error
	Modal(ctx context.Context, m Modal) error
	Edit(ctx context.Context, r Reply) error
	Followup(ctx context.Context, r Reply) error
}

// MemberJoin is delivered when a member joins a guild.
type MemberJoin struct {
	GuildID   string
	GuildName string
	ChannelID string
	Member    models.Member
}
