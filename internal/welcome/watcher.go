// Package welcome greets new members: it restricts them with the unverified
// role and posts a welcome card with the Verify Identity control.
package welcome

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/metrics"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/verify"
)

const cardFileName = "welcome.png"

// Picker chooses a background template URL.
type Picker interface {
	Pick(ctx context.Context) (string, bool)
}

// Renderer draws a name onto a background and returns PNG bytes.
type Renderer interface {
	Render(background []byte, name string) ([]byte, error)
}

// Options tunes a Watcher.
type Options struct {
	// GuildID restricts the watcher to one guild when set.
	GuildID string
	// ChannelID receives welcome posts; the join's own channel when empty.
	ChannelID string
	// ScanTimeout bounds the config load and template scan.
	ScanTimeout time.Duration
}

// Watcher reacts to member joins.
type Watcher struct {
	store    store.ConfigStore
	client   platform.Client
	picker   Picker
	fetcher  Fetcher
	renderer Renderer
	opts     Options
	logger   zerolog.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(st store.ConfigStore, client platform.Client, picker Picker, fetcher Fetcher, renderer Renderer, opts Options, logger zerolog.Logger) *Watcher {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = verify.DefaultScanTimeout
	}
	return &Watcher{
		store:    st,
		client:   client,
		picker:   picker,
		fetcher:  fetcher,
		renderer: renderer,
		opts:     opts,
		logger:   logger.With().Str("component", "welcome").Logger(),
	}
}

// Accepts reports whether joins in guildID are handled.
func (w *Watcher) Accepts(guildID string) bool {
	return w.opts.GuildID == "" || w.opts.GuildID == guildID
}

// HandleJoin grants the unverified role and posts the welcome. The role
// grant and the card preparation run concurrently; a card failure degrades
// to a text-only post and never affects the grant. Only a failure to post
// anything at all is returned.
func (w *Watcher) HandleJoin(ctx context.Context, join platform.MemberJoin) error {
	log := w.logger.With().Str("guild", join.GuildID).Str("member", join.Member.ID).Logger()
	if !w.Accepts(join.GuildID) {
		log.Debug().Msg("join from another guild ignored")
		return nil
	}

	var (
		rec  *models.ConfigRecord
		card []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec = w.restrict(gctx, join, log)
		return nil
	})
	g.Go(func() error {
		card = w.card(gctx, join.Member, log)
		return nil
	})
	_ = g.Wait()

	channelID := w.opts.ChannelID
	if channelID == "" {
		channelID = join.ChannelID
	}
	msg := platform.OutgoingMessage{
		Content:    rec.Welcome(join.Member.Mention(), join.GuildName, join.Member.Username),
		Components: verify.EntryComponents(),
	}

	if card != nil {
		withCard := msg
		withCard.Files = []platform.File{{Name: cardFileName, ContentType: "image/png", Data: card}}
		_, err := w.client.SendMessage(ctx, channelID, withCard)
		if err == nil {
			metrics.WelcomePosts.WithLabelValues("image").Inc()
			log.Info().Str("channel", channelID).Msg("welcome card posted")
			return nil
		}
		log.Warn().Err(err).Str("channel", channelID).Msg("post welcome card, retrying as text")
	}

	if _, err := w.client.SendMessage(ctx, channelID, msg); err != nil {
		return fmt.Errorf("post welcome to %s: %w", channelID, err)
	}
	metrics.WelcomePosts.WithLabelValues("text").Inc()
	log.Info().Str("channel", channelID).Msg("welcome posted")
	return nil
}

// restrict loads the record and grants its unverified role. The record is
// returned for the welcome text; nil when none could be loaded.
func (w *Watcher) restrict(ctx context.Context, join platform.MemberJoin, log zerolog.Logger) *models.ConfigRecord {
	loadCtx, cancel := context.WithTimeout(ctx, w.opts.ScanTimeout)
	defer cancel()

	rec, err := w.store.Load(loadCtx)
	if err != nil {
		log.Warn().Err(err).Msg("load verification config")
		return nil
	}
	if rec == nil || rec.UnverifiedRoleID == "" {
		log.Debug().Msg("no unverified role configured")
		return rec
	}

	role := rec.UnverifiedRoleID.String()
	if err := w.client.AddRole(ctx, join.GuildID, join.Member.ID, role); err != nil {
		metrics.RoleMutations.WithLabelValues("grant", "error").Inc()
		log.Warn().Err(err).Str("role", role).Msg("assign unverified role")
		return rec
	}
	metrics.RoleMutations.WithLabelValues("grant", "ok").Inc()
	log.Info().Str("role", role).Msg("unverified role assigned")
	return rec
}

// card renders the welcome image, or returns nil when any step fails.
func (w *Watcher) card(ctx context.Context, member models.Member, log zerolog.Logger) []byte {
	if w.picker == nil || w.fetcher == nil || w.renderer == nil {
		return nil
	}
	pickCtx, cancel := context.WithTimeout(ctx, w.opts.ScanTimeout)
	url, ok := w.picker.Pick(pickCtx)
	cancel()
	if !ok {
		log.Debug().Msg("no welcome template available")
		return nil
	}

	bg, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("template", url).Msg("fetch welcome template")
		return nil
	}
	name := member.Username
	if name == "" {
		name = member.DisplayName
	}
	out, err := w.renderer.Render(bg, name)
	if err != nil {
		log.Warn().Err(err).Str("template", url).Msg("render welcome card")
		return nil
	}
	return out
}
