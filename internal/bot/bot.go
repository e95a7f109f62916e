// Package bot routes platform events to the verification components.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/setup"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/verify"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/welcome"
)

// Command names.
const (
	CmdSetupVerification = "setup_verification"
	CmdVerify            = "verify"
	CmdSimulateJoin      = "simulate_join"
	CmdSetWelcome        = "set_welcome"

	optRole    = "unverified_role"
	optMessage = "message"
)

const msgAdminOnly = "🚫 Admin only!"

// Commands returns the slash commands the bot registers.
func Commands() []platform.Command {
	return []platform.Command{
		{
			Name:        CmdSetupVerification,
			Description: "Setup the Unverified role and questions",
			AdminOnly:   true,
			Options: []platform.CommandOption{{
				Name:        optRole,
				Description: "Select the role to remove after verification",
				Type:        platform.OptionRole,
				Required:    true,
			}},
		},
		{
			Name:        CmdVerify,
			Description: "Start verification",
		},
		{
			Name:        CmdSimulateJoin,
			Description: "Run the welcome flow as if you had just joined",
			AdminOnly:   true,
		},
		{
			Name:        CmdSetWelcome,
			Description: "Set the welcome message ({user}, {server}, {name})",
			AdminOnly:   true,
			Options: []platform.CommandOption{{
				Name:        optMessage,
				Description: "Welcome message template",
				Type:        platform.OptionString,
				Required:    true,
			}},
		},
	}
}

// Options configures a Router.
type Options struct {
	// GuildID restricts the bot to one guild when set.
	GuildID string
	// IsAdmin grants administrator rights to listed users regardless of
	// their guild permissions. Optional.
	IsAdmin func(userID string) bool
}

// Router dispatches interactions and joins.
type Router struct {
	store   store.ConfigStore
	engine  *verify.Engine
	wizards *setup.Manager
	watcher *welcome.Watcher
	opts    Options
	logger  zerolog.Logger
}

// NewRouter creates a Router.
func NewRouter(st store.ConfigStore, engine *verify.Engine, wizards *setup.Manager, watcher *welcome.Watcher, opts Options, logger zerolog.Logger) *Router {
	return &Router{
		store:   st,
		engine:  engine,
		wizards: wizards,
		watcher: watcher,
		opts:    opts,
		logger:  logger.With().Str("component", "bot").Logger(),
	}
}

// HandleInteraction routes one interaction. Failures are logged, never returned.
func (rt *Router) HandleInteraction(ctx context.Context, ix *platform.Interaction, r platform.Responder) {
	if rt.opts.GuildID != "" && ix.GuildID != rt.opts.GuildID {
		rt.logger.Debug().Str("guild", ix.GuildID).Msg("interaction from another guild ignored")
		return
	}
	if err := rt.route(ctx, ix, r); err != nil {
		level := zerolog.WarnLevel
		if errors.Is(err, platform.ErrUnknownInteraction) {
			level = zerolog.DebugLevel
		}
		rt.logger.WithLevel(level).Err(err).
			Str("guild", ix.GuildID).
			Str("member", ix.Member.ID).
			Str("command", ix.CommandName).
			Str("custom_id", ix.CustomID).
			Msg("interaction failed")
	}
}

// HandleJoin runs the welcome flow for a new member.
func (rt *Router) HandleJoin(ctx context.Context, join platform.MemberJoin) {
	if err := rt.watcher.HandleJoin(ctx, join); err != nil {
		rt.logger.Warn().Err(err).Str("guild", join.GuildID).Str("member", join.Member.ID).Msg("welcome failed")
	}
}

func (rt *Router) route(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	switch ix.Kind {
	case platform.KindCommand:
		return rt.command(ctx, ix, r)
	case platform.KindComponent, platform.KindModalSubmit:
		switch {
		case verify.Handles(ix.CustomID):
			return rt.engine.HandleInteraction(ctx, ix, r)
		case setup.Handles(ix.CustomID):
			return rt.wizards.HandleInteraction(ctx, ix, r)
		}
	}
	return fmt.Errorf("%w: kind %d custom id %q", platform.ErrUnknownInteraction, ix.Kind, ix.CustomID)
}

func (rt *Router) command(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	if rt.adminOnly(ix.CommandName) && !rt.isAdmin(ix) {
		return r.Reply(ctx, platform.Reply{Content: msgAdminOnly, Ephemeral: true})
	}

	switch ix.CommandName {
	case CmdSetupVerification:
		role := ix.Options[optRole]
		if role == "" {
			return r.Reply(ctx, platform.Reply{Content: "⚠️ Pick the unverified role.", Ephemeral: true})
		}
		return rt.wizards.Open(ctx, ix, r, role)

	case CmdVerify:
		return rt.engine.Start(ctx, ix, r)

	case CmdSimulateJoin:
		return rt.simulateJoin(ctx, ix, r)

	case CmdSetWelcome:
		return rt.setWelcome(ctx, ix, r)
	}
	return fmt.Errorf("%w: command %q", platform.ErrUnknownInteraction, ix.CommandName)
}

func (rt *Router) simulateJoin(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	if err := r.Defer(ctx, true); err != nil {
		return err
	}
	err := rt.watcher.HandleJoin(ctx, platform.MemberJoin{
		GuildID:   ix.GuildID,
		GuildName: ix.GuildName,
		ChannelID: ix.ChannelID,
		Member:    ix.Member,
	})
	if err != nil {
		rt.logger.Warn().Err(err).Str("member", ix.Member.ID).Msg("simulated join failed")
		return r.Followup(ctx, platform.Reply{Content: "❌ Welcome failed: " + err.Error(), Ephemeral: true})
	}
	return r.Followup(ctx, platform.Reply{Content: "✅ Simulated join for " + ix.Member.Mention() + ".", Ephemeral: true})
}

func (rt *Router) setWelcome(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	message := strings.TrimSpace(ix.Options[optMessage])
	if message == "" {
		return r.Reply(ctx, platform.Reply{Content: "⚠️ The welcome message cannot be empty.", Ephemeral: true})
	}
	if err := r.Defer(ctx, true); err != nil {
		return err
	}

	rec, err := rt.store.Load(ctx)
	if err != nil {
		rt.logger.Warn().Err(err).Msg("load config for welcome update")
		return r.Followup(ctx, platform.Reply{Content: "❌ Could not read the current configuration.", Ephemeral: true})
	}
	if rec == nil {
		rec = &models.ConfigRecord{Questions: models.Questions{}}
	}
	rec.WelcomeMessage = message

	if err := rt.store.Save(ctx, rec); err != nil {
		rt.logger.Error().Err(err).Msg("save welcome message")
		return r.Followup(ctx, platform.Reply{Content: "❌ Failed to save: " + err.Error(), Ephemeral: true})
	}
	rt.logger.Info().Str("admin", ix.Member.ID).Msg("welcome message updated")

	preview := rec.Welcome(ix.Member.Mention(), ix.GuildName, ix.Member.Username)
	return r.Followup(ctx, platform.Reply{Content: "✅ Welcome message updated. Preview:\n" + preview, Ephemeral: true})
}

func (rt *Router) adminOnly(name string) bool {
	for _, c := range Commands() {
		if c.Name == name {
			return c.AdminOnly
		}
	}
	return false
}

func (rt *Router) isAdmin(ix *platform.Interaction) bool {
	if ix.IsAdmin {
		return true
	}
	return rt.opts.IsAdmin != nil && rt.opts.IsAdmin(ix.Member.ID)
}
