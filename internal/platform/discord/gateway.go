package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

// eventTimeout bounds the work done for a single gateway event. Interaction
// tokens stay valid for 15 minutes; the first response is due within 3 seconds.
const eventTimeout = 2 * time.Minute

// Intents needed for joins, interactions and channel history.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

// Handler receives converted gateway events.
type Handler interface {
	HandleInteraction(ctx context.Context, ix *platform.Interaction, r platform.Responder)
	HandleJoin(ctx context.Context, join platform.MemberJoin)
}

// Gateway connects a session to a Handler and registers slash commands.
type Gateway struct {
	s        *discordgo.Session
	guildID  string
	commands []platform.Command
	logger   zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ready   bool
	removes []func()
}

// NewSession creates a bot session with the required intents.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// NewGateway creates a Gateway. Commands are registered in guildID, or
// globally when guildID is empty.
func NewGateway(s *discordgo.Session, guildID string, commands []platform.Command, logger zerolog.Logger) *Gateway {
	return &Gateway{
		s:        s,
		guildID:  guildID,
		commands: commands,
		logger:   logger.With().Str("component", "gateway").Logger(),
	}
}

// Open installs the event handlers and connects.
func (g *Gateway) Open(ctx context.Context, h Handler) error {
	g.mu.Lock()
	g.ctx, g.cancel = context.WithCancel(context.WithoutCancel(ctx))
	g.removes = append(g.removes,
		g.s.AddHandler(g.onReady),
		g.s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) { g.onInteraction(h, i) }),
		g.s.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) { g.onMemberAdd(h, m) }),
	)
	g.mu.Unlock()

	if err := g.s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects and cancels in-flight event handling.
func (g *Gateway) Close() error {
	g.mu.Lock()
	for _, remove := range g.removes {
		remove()
	}
	g.removes = nil
	if g.cancel != nil {
		g.cancel()
	}
	g.ready = false
	g.mu.Unlock()
	return g.s.Close()
}

// Ping reports whether the gateway has received READY.
func (g *Gateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ready {
		return fmt.Errorf("discord gateway not ready")
	}
	return nil
}

func (g *Gateway) eventContext() (context.Context, context.CancelFunc) {
	g.mu.Lock()
	base := g.ctx
	g.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, eventTimeout)
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
	g.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord gateway ready")

	ctx, cancel := g.eventContext()
	defer cancel()

	cmds := make([]*discordgo.ApplicationCommand, 0, len(g.commands))
	for _, c := range g.commands {
		cmds = append(cmds, toCommand(c))
	}
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, g.guildID, cmds, discordgo.WithContext(ctx)); err != nil {
		g.logger.Error().Err(err).Str("guild", g.guildID).Msg("register slash commands")
		return
	}
	g.logger.Info().Int("commands", len(cmds)).Str("guild", g.guildID).Msg("slash commands registered")
}

func (g *Gateway) onInteraction(h Handler, ev *discordgo.InteractionCreate) {
	ix, err := fromInteraction(ev.Interaction, g.guildName(ev.GuildID))
	if err != nil {
		g.logger.Debug().Err(err).Msg("interaction ignored")
		return
	}
	ctx, cancel := g.eventContext()
	defer cancel()
	h.HandleInteraction(ctx, ix, &responder{s: g.s, i: ev.Interaction})
}

func (g *Gateway) onMemberAdd(h Handler, ev *discordgo.GuildMemberAdd) {
	if ev.Member == nil || ev.User == nil || ev.User.Bot {
		return
	}
	join := platform.MemberJoin{
		GuildID:   ev.GuildID,
		GuildName: g.guildName(ev.GuildID),
		Member:    fromUser(ev.User, ev.Nick),
	}
	if guild, err := g.s.State.Guild(ev.GuildID); err == nil {
		join.ChannelID = guild.SystemChannelID
	}
	ctx, cancel := g.eventContext()
	defer cancel()
	h.HandleJoin(ctx, join)
}

func (g *Gateway) guildName(guildID string) string {
	if guildID == "" || g.s.State == nil {
		return ""
	}
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return guild.Name
}
