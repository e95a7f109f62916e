// Package verify runs the member verification questionnaire.
package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/metrics"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/ratelimit"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
)

const (
	DefaultTimeout     = 5 * time.Minute
	DefaultScanTimeout = 2500 * time.Millisecond

	modalLabelLength = 45
	fieldNameLength  = 256
	fieldValueLength = 1024
	auditColor       = 0x00ff00
)

// User-visible notices.
const (
	msgNotConfigured = "❌ Verification not configured."
	msgExpired       = "⌛ This verification has expired. Press **Verify Identity** to start again."
	msgStale         = "That question was already answered."
	msgNotYours      = "🚫 This verification belongs to someone else."
	msgInvalidAnswer = "That answer is not one of the options."
)

// Options tunes an Engine.
type Options struct {
	// LogChannelID receives the audit record of completed sessions.
	LogChannelID string
	// Timeout abandons a session that sees no interaction for this long.
	Timeout time.Duration
	// ScanTimeout bounds the spec load done before the first response.
	ScanTimeout time.Duration
	// Limiter throttles starts per member; nil disables throttling.
	Limiter ratelimit.Limiter
}

// Engine drives verification sessions. Sessions live in memory only and are
// keyed by id; a restart loses any session in progress.
type Engine struct {
	store    store.ConfigStore
	roles    platform.Roles
	channels platform.Channels
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	byMember map[string]string
}

// New creates an Engine.
func New(st store.ConfigStore, client platform.Client, opts Options, logger zerolog.Logger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	return &Engine{
		store:    st,
		roles:    client,
		channels: client,
		opts:     opts,
		logger:   logger.With().Str("component", "verify").Logger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		byMember: make(map[string]string),
	}
}

// EntryComponents returns the Verify Identity control posted with welcomes.
func EntryComponents() []platform.Row {
	return []platform.Row{{
		platform.Button{CustomID: StartID, Label: "🛡️ Verify Identity", Style: platform.StyleSuccess},
	}}
}

// Active returns the number of sessions in progress.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Snapshot returns a copy of a session in progress.
func (e *Engine) Snapshot(id string) (Snapshot, bool) {
	s := e.lookup(id)
	if s == nil {
		return Snapshot{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:      s.ID,
		GuildID: s.GuildID,
		Member:  s.Member,
		Cursor:  s.Cursor,
		Answers: append([]models.Answer(nil), s.Answers...),
		State:   s.State,
	}, true
}

// SessionFor returns the id of the member's session in progress.
func (e *Engine) SessionFor(guildID, memberID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.byMember[memberKey(guildID, memberID)]
	return id, ok
}

// Close stops every session timer and drops all sessions.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, s := range e.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(e.sessions, id)
	}
	e.byMember = make(map[string]string)
	metrics.ActiveSessions.Set(0)
}

// HandleInteraction routes a Verify Identity press or a session control.
func (e *Engine) HandleInteraction(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	if ix.CustomID == StartID {
		return e.Start(ctx, ix, r)
	}
	id, err := parseComponentID(ix.CustomID)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUnknownInteraction, err)
	}

	s := e.lookup(id.session)
	if s == nil {
		return r.Reply(ctx, platform.Reply{Content: msgExpired, Ephemeral: true})
	}
	if s.Member.ID != ix.Member.ID {
		return r.Reply(ctx, platform.Reply{Content: msgNotYours, Ephemeral: true})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateAsking || id.step != s.Cursor {
		return r.Reply(ctx, platform.Reply{Content: msgStale, Ephemeral: true})
	}
	e.touch(s)

	q := s.current()
	switch id.action {
	case actionAnswer:
		if _, ok := q.(models.TextQuestion); !ok {
			return r.Reply(ctx, platform.Reply{Content: msgStale, Ephemeral: true})
		}
		return r.Modal(ctx, e.textModal(s))

	case actionText:
		if _, ok := q.(models.TextQuestion); !ok {
			return r.Reply(ctx, platform.Reply{Content: msgStale, Ephemeral: true})
		}
		// The answer is filed under the label the member saw in the modal.
		s.record(platform.Truncate(q.Prompt(), modalLabelLength), strings.TrimSpace(ix.Fields[answerInputID]))
		return e.advance(ctx, ix, r, s, false)

	case actionSelect:
		sq, ok := q.(models.SelectQuestion)
		if !ok || len(ix.Values) == 0 || !contains(sq.Options, ix.Values[0]) {
			return r.Reply(ctx, platform.Reply{Content: msgInvalidAnswer, Ephemeral: true})
		}
		return e.choose(ctx, ix, r, s, models.ChoiceLabel, ix.Values[0])

	case actionRadio:
		rq, ok := q.(models.RadioQuestion)
		if !ok || id.option >= len(rq.Options) {
			return r.Reply(ctx, platform.Reply{Content: msgInvalidAnswer, Ephemeral: true})
		}
		return e.choose(ctx, ix, r, s, models.SelectionLabel, rq.Options[id.option])
	}
	return fmt.Errorf("%w: %s", platform.ErrUnknownInteraction, ix.CustomID)
}

// Start loads the committed spec and asks the first question.
func (e *Engine) Start(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	log := e.logger.With().Str("guild", ix.GuildID).Str("member", ix.Member.ID).Logger()

	if e.opts.Limiter != nil {
		limitCtx, cancel := context.WithTimeout(ctx, e.opts.ScanTimeout)
		allowed, retryAt, err := e.opts.Limiter.Allow(limitCtx, memberKey(ix.GuildID, ix.Member.ID))
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.VerificationsFinished.WithLabelValues("rate_limited").Inc()
			return r.Reply(ctx, platform.Reply{
				Content:   fmt.Sprintf("⏳ Too many verification attempts. Try again <t:%d:R>.", retryAt.Unix()),
				Ephemeral: true,
			})
		}
	}

	spec, ok := e.loadSpec(ctx, log)
	if !ok {
		metrics.VerificationsFinished.WithLabelValues("not_configured").Inc()
		return r.Reply(ctx, platform.Reply{Content: msgNotConfigured, Ephemeral: true})
	}

	s := &Session{
		ID:        ulid.Make().String(),
		GuildID:   ix.GuildID,
		Member:    ix.Member,
		Spec:      spec,
		State:     StateAsking,
		StartedAt: e.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.register(s)

	metrics.VerificationsStarted.Inc()
	log.Info().Str("session", s.ID).Int("questions", len(spec.Questions)).Msg("verification started")

	return e.present(ctx, ix, r, s, false)
}

// loadSpec reads the spec within the scan budget. Any failure counts as
// "not configured".
func (e *Engine) loadSpec(ctx context.Context, log zerolog.Logger) (models.VerificationSpec, bool) {
	loadCtx, cancel := context.WithTimeout(ctx, e.opts.ScanTimeout)
	defer cancel()

	rec, err := e.store.Load(loadCtx)
	if err != nil {
		log.Warn().Err(err).Msg("load verification config")
		return models.VerificationSpec{}, false
	}
	if rec == nil {
		return models.VerificationSpec{}, false
	}
	spec := rec.Spec()
	if err := spec.Validate(); err != nil {
		if len(spec.Questions) > 0 {
			log.Warn().Err(err).Msg("committed verification config is invalid")
		}
		return models.VerificationSpec{}, false
	}
	return spec.Clone(), true
}

// choose records a select or radio answer, disables the answered controls
// and moves on.
func (e *Engine) choose(ctx context.Context, ix *platform.Interaction, r platform.Responder, s *Session, label, value string) error {
	step := s.Cursor
	rows := platform.DisableAll(e.questionRows(s, step))
	s.record(label, value)

	content := fmt.Sprintf("%s\n✅ %s", questionHeading(s.Spec.Questions[step], step), value)
	if err := r.Update(ctx, platform.Reply{Content: content, Components: rows}); err != nil {
		e.logger.Warn().Err(err).Str("session", s.ID).Msg("acknowledge answer")
	}
	return e.advance(ctx, ix, r, s, true)
}

// advance presents the next question or finishes the session.
func (e *Engine) advance(ctx context.Context, ix *platform.Interaction, r platform.Responder, s *Session, acked bool) error {
	if s.complete() {
		return e.finish(ctx, ix, r, s, acked)
	}
	return e.present(ctx, ix, r, s, acked)
}

// present asks the question at the cursor. A text question opens its modal
// directly when the interaction allows it, otherwise an Answer button is
// shown that opens the modal on the next press.
func (e *Engine) present(ctx context.Context, ix *platform.Interaction, r platform.Responder, s *Session, acked bool) error {
	q := s.current()
	if _, ok := q.(models.TextQuestion); ok && !acked && ix.CanOpenModal() {
		return r.Modal(ctx, e.textModal(s))
	}
	reply := platform.Reply{
		Content:    questionHeading(q, s.Cursor),
		Ephemeral:  true,
		Components: e.questionRows(s, s.Cursor),
	}
	if acked {
		return r.Followup(ctx, reply)
	}
	return r.Reply(ctx, reply)
}

func questionHeading(q models.Question, step int) string {
	icon := "📝"
	switch q.Kind() {
	case models.KindSelect:
		icon = "🔻"
	case models.KindRadio:
		icon = "🔘"
	}
	return fmt.Sprintf("%s **Q%d:** %s", icon, step+1, q.Prompt())
}

// questionRows renders the controls for the question at step.
func (e *Engine) questionRows(s *Session, step int) []platform.Row {
	q := s.Spec.Questions[step]
	switch v := q.(type) {
	case models.SelectQuestion:
		return []platform.Row{{platform.SelectMenu{
			CustomID:    componentID{session: s.ID, step: step, action: actionSelect}.String(),
			Placeholder: "Choose an option",
			Options:     v.Options,
		}}}
	case models.RadioQuestion:
		row := make(platform.Row, 0, len(v.Options))
		for i, opt := range v.Options {
			row = append(row, platform.Button{
				CustomID: componentID{session: s.ID, step: step, action: actionRadio, option: i}.String(),
				Label:    opt,
				Style:    platform.StyleSecondary,
			})
		}
		return []platform.Row{row}
	default:
		return []platform.Row{{platform.Button{
			CustomID: componentID{session: s.ID, step: step, action: actionAnswer}.String(),
			Label:    "Answer",
			Style:    platform.StylePrimary,
		}}}
	}
}

func (e *Engine) textModal(s *Session) platform.Modal {
	return platform.Modal{
		CustomID: componentID{session: s.ID, step: s.Cursor, action: actionText}.String(),
		Title:    fmt.Sprintf("Question %d", s.Cursor+1),
		Inputs: []platform.TextInput{{
			CustomID:  answerInputID,
			Label:     platform.Truncate(s.current().Prompt(), modalLabelLength),
			Paragraph: true,
			Required:  true,
			MaxLength: fieldValueLength,
		}},
	}
}

// finish revokes the restricted role, writes the audit record and
// acknowledges the member. Role or audit failures do not stop completion.
func (e *Engine) finish(ctx context.Context, ix *platform.Interaction, r platform.Responder, s *Session, acked bool) error {
	s.State = StateFinishing
	log := e.logger.With().Str("session", s.ID).Str("guild", s.GuildID).Str("member", s.Member.ID).Logger()

	if !acked {
		if err := r.Defer(ctx, true); err != nil {
			log.Warn().Err(err).Msg("defer completion")
		}
	}

	lines := []string{e.revokeRole(ctx, s, log)}

	rec := models.AuditRecord{
		SessionID:   s.ID,
		GuildID:     s.GuildID,
		Member:      s.Member,
		Answers:     append([]models.Answer(nil), s.Answers...),
		CompletedAt: e.now(),
	}
	if err := e.postAudit(ctx, rec); err != nil {
		log.Warn().Err(err).Str("channel", e.opts.LogChannelID).Msg("post audit record")
	}

	s.State = StateDone
	e.unregister(s)
	metrics.VerificationsFinished.WithLabelValues("completed").Inc()
	log.Info().Int("answers", len(s.Answers)).Dur("elapsed", e.now().Sub(s.StartedAt)).Msg("verification completed")

	return r.Followup(ctx, platform.Reply{
		Content:   "🎉 **Verification Complete!**\n" + strings.Join(lines, "\n"),
		Ephemeral: true,
	})
}

func (e *Engine) revokeRole(ctx context.Context, s *Session, log zerolog.Logger) string {
	if s.Spec.RoleID == "" {
		return "⚠️ No role configured to remove."
	}
	if err := e.roles.RemoveRole(ctx, s.GuildID, s.Member.ID, s.Spec.RoleID.String()); err != nil {
		metrics.RoleMutations.WithLabelValues("revoke", "error").Inc()
		log.Warn().Err(err).Str("role", s.Spec.RoleID.String()).Msg("remove unverified role")
		return fmt.Sprintf("⚠️ Failed to remove role: %v", err)
	}
	metrics.RoleMutations.WithLabelValues("revoke", "ok").Inc()
	return "🔓 Un-verified role removed."
}

// AuditEmbed renders a completed session for the log channel.
func AuditEmbed(rec models.AuditRecord) platform.Embed {
	name := rec.Member.Username
	if name == "" {
		name = rec.Member.ID
	}
	embed := platform.Embed{
		Title:        "🛡️ Verified: " + name,
		Description:  rec.Member.Mention(),
		Color:        auditColor,
		ThumbnailURL: rec.Member.AvatarURL,
		Fields:       make([]platform.EmbedField, 0, len(rec.Answers)),
	}
	for _, a := range rec.Answers {
		value := a.Value
		if strings.TrimSpace(value) == "" {
			value = "—"
		}
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  platform.Truncate(a.Label, fieldNameLength),
			Value: platform.Truncate(value, fieldValueLength),
		})
	}
	return embed
}

func (e *Engine) postAudit(ctx context.Context, rec models.AuditRecord) error {
	if e.opts.LogChannelID == "" {
		return fmt.Errorf("log channel not configured")
	}
	_, err := e.channels.SendMessage(ctx, e.opts.LogChannelID, platform.OutgoingMessage{
		Embeds: []platform.Embed{AuditEmbed(rec)},
	})
	return err
}

// register adds s and abandons any earlier session of the same member.
// The caller holds s.mu.
func (e *Engine) register(s *Session) {
	key := memberKey(s.GuildID, s.Member.ID)

	e.mu.Lock()
	prev := e.sessions[e.byMember[key]]
	e.sessions[s.ID] = s
	e.byMember[key] = s.ID
	metrics.ActiveSessions.Set(float64(len(e.sessions)))
	e.mu.Unlock()

	if prev != nil {
		e.supersede(prev)
	}
	e.touch(s)
}

// supersede abandons a session replaced by a newer attempt.
func (e *Engine) supersede(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateAsking {
		return
	}
	s.State = StateAbandoned
	if s.timer != nil {
		s.timer.Stop()
	}
	e.mu.Lock()
	delete(e.sessions, s.ID)
	metrics.ActiveSessions.Set(float64(len(e.sessions)))
	e.mu.Unlock()
	metrics.VerificationsFinished.WithLabelValues("abandoned").Inc()
	e.logger.Debug().Str("session", s.ID).Msg("verification superseded")
}

// unregister removes a finished session. The caller holds s.mu.
func (e *Engine) unregister(s *Session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, s.ID)
	key := memberKey(s.GuildID, s.Member.ID)
	if e.byMember[key] == s.ID {
		delete(e.byMember, key)
	}
	metrics.ActiveSessions.Set(float64(len(e.sessions)))
}

func (e *Engine) lookup(id string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

// touch pushes the session deadline out by the timeout. The caller holds s.mu.
func (e *Engine) touch(s *Session) {
	s.deadline = e.now().Add(e.opts.Timeout)
	if s.timer == nil {
		id := s.ID
		s.timer = time.AfterFunc(e.opts.Timeout, func() { e.expire(id) })
		return
	}
	s.timer.Reset(e.opts.Timeout)
}

// expire abandons a session that saw no interaction before its deadline.
// Partial answers are dropped and no audit record is written.
func (e *Engine) expire(id string) {
	s := e.lookup(id)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateAsking || e.now().Before(s.deadline) {
		return
	}
	s.State = StateAbandoned
	e.unregister(s)
	metrics.VerificationsFinished.WithLabelValues("abandoned").Inc()
	e.logger.Info().
		Str("session", s.ID).
		Str("member", s.Member.ID).
		Int("answered", len(s.Answers)).
		Msg("verification abandoned")
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
