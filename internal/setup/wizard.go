// Package setup implements the administrator wizard that authors the
// verification questionnaire.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
)

const DefaultTimeout = 10 * time.Minute

const (
	promptInputID  = "prompt"
	optionsInputID = "options"
)

const (
	msgExpired  = "⌛ This setup wizard has expired. Run `/setup_verification` again."
	msgNotYours = "🚫 This setup wizard belongs to someone else."
	msgNoSave   = "⚠️ Add at least one question before saving."
)

var errUnknownAction = errors.New("unknown wizard action")

// Wizard is one administrator's unsaved questionnaire.
type Wizard struct {
	ID        string
	GuildID   string
	OwnerID   string
	RoleID    models.Snowflake
	Questions models.Questions

	mu       sync.Mutex
	done     bool
	deadline time.Time
	timer    *time.Timer
}

// Manager keeps the open wizards. Two administrators editing at once each
// get their own wizard; the last Save wins.
type Manager struct {
	store   store.ConfigStore
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	wizards map[string]*Wizard
}

// NewManager creates a Manager committing to st.
func NewManager(st store.ConfigStore, timeout time.Duration, logger zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		store:   st,
		timeout: timeout,
		logger:  logger.With().Str("component", "setup").Logger(),
		wizards: make(map[string]*Wizard),
	}
}

// Open starts a wizard for roleID and shows its controls.
func (m *Manager) Open(ctx context.Context, ix *platform.Interaction, r platform.Responder, roleID string) error {
	w := &Wizard{
		ID:        uuid.NewString(),
		GuildID:   ix.GuildID,
		OwnerID:   ix.Member.ID,
		RoleID:    models.Snowflake(roleID),
		Questions: models.Questions{},
	}
	m.mu.Lock()
	m.wizards[w.ID] = w
	m.mu.Unlock()

	w.mu.Lock()
	m.touch(w)
	w.mu.Unlock()

	m.logger.Info().Str("wizard", w.ID).Str("guild", w.GuildID).Str("admin", w.OwnerID).Str("role", roleID).Msg("setup wizard opened")

	return r.Reply(ctx, platform.Reply{
		Content:    fmt.Sprintf("🛠️ **Setup Wizard:**\nSelected Role: <@&%s>\nAdd your questions below:", roleID),
		Ephemeral:  true,
		Components: controls(w.ID),
	})
}

// Active returns the number of wizards in progress.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wizards)
}

// Close stops every wizard timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.wizards {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(m.wizards, id)
	}
}

// HandleInteraction routes a wizard button press or modal submission.
func (m *Manager) HandleInteraction(ctx context.Context, ix *platform.Interaction, r platform.Responder) error {
	id, err := parseCustomID(ix.CustomID)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUnknownInteraction, err)
	}

	w := m.lookup(id.wizard)
	if w == nil {
		return r.Reply(ctx, platform.Reply{Content: msgExpired, Ephemeral: true})
	}
	if w.OwnerID != ix.Member.ID {
		return r.Reply(ctx, platform.Reply{Content: msgNotYours, Ephemeral: true})
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return r.Reply(ctx, platform.Reply{Content: msgExpired, Ephemeral: true})
	}
	m.touch(w)

	switch id.action {
	case actionAdd:
		return r.Modal(ctx, questionModal(w.ID, id.kind))
	case actionSubmit:
		return m.submit(ctx, ix, r, w, id.kind)
	case actionSave:
		return m.save(ctx, r, w)
	}
	return fmt.Errorf("%w: %s", errUnknownAction, id.action)
}

// submit appends the question from a modal and re-renders the list.
func (m *Manager) submit(ctx context.Context, ix *platform.Interaction, r platform.Responder, w *Wizard, kind models.QuestionKind) error {
	if len(w.Questions) >= models.MaxQuestions {
		return r.Reply(ctx, platform.Reply{
			Content:   fmt.Sprintf("⚠️ A questionnaire holds at most %d questions.", models.MaxQuestions),
			Ephemeral: true,
		})
	}

	var options []string
	if kind != models.KindText {
		options = models.ParseOptions(ix.Fields[optionsInputID])
	}
	q, err := models.NewQuestion(kind, strings.TrimSpace(ix.Fields[promptInputID]), options)
	if err != nil {
		return r.Reply(ctx, platform.Reply{Content: "⚠️ Question rejected: " + err.Error(), Ephemeral: true})
	}
	w.Questions = append(w.Questions, q)

	return r.Update(ctx, platform.Reply{Content: w.summary(), Components: controls(w.ID)})
}

// save commits the questionnaire, keeping the welcome message of any
// previously committed record.
func (m *Manager) save(ctx context.Context, r platform.Responder, w *Wizard) error {
	spec := models.VerificationSpec{RoleID: w.RoleID, Questions: w.Questions}
	if err := spec.Validate(); err != nil {
		if errors.Is(err, models.ErrNoQuestions) {
			return r.Reply(ctx, platform.Reply{Content: msgNoSave, Ephemeral: true})
		}
		return r.Reply(ctx, platform.Reply{Content: "⚠️ " + err.Error(), Ephemeral: true})
	}

	if err := r.DeferUpdate(ctx); err != nil {
		m.logger.Warn().Err(err).Str("wizard", w.ID).Msg("acknowledge save")
	}

	log := m.logger.With().Str("wizard", w.ID).Str("backend", m.store.Backend()).Logger()

	rec, err := m.store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load previous config")
	}
	if rec == nil {
		rec = &models.ConfigRecord{}
	}
	rec.SetSpec(spec.Clone())

	if err := m.store.Save(ctx, rec); err != nil {
		log.Error().Err(err).Msg("save verification config")
		return r.Edit(ctx, platform.Reply{
			Content:    w.summary() + "\n\n❌ Failed to save: " + err.Error(),
			Components: controls(w.ID),
		})
	}

	w.done = true
	m.remove(w)
	log.Info().Int("questions", len(w.Questions)).Str("role", w.RoleID.String()).Msg("verification config saved")

	return r.Edit(ctx, platform.Reply{
		Content:         fmt.Sprintf("✅ **Saved!** %d questions.", len(w.Questions)),
		ClearComponents: true,
	})
}

func (w *Wizard) summary() string {
	var b strings.Builder
	b.WriteString("**Questions:**")
	for i, q := range w.Questions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, q.Prompt())
		if opts := models.OptionsOf(q); len(opts) > 0 {
			fmt.Fprintf(&b, " (%s: %s)", q.Kind(), strings.Join(opts, ", "))
		}
	}
	return platform.Truncate(b.String(), platform.MaxMessageLength)
}

func controls(wizardID string) []platform.Row {
	return []platform.Row{
		{
			platform.Button{CustomID: customID{wizard: wizardID, action: actionAdd, kind: models.KindText}.String(), Label: "+ Text Q", Style: platform.StylePrimary},
			platform.Button{CustomID: customID{wizard: wizardID, action: actionAdd, kind: models.KindSelect}.String(), Label: "+ Dropdown", Style: platform.StyleSecondary},
			platform.Button{CustomID: customID{wizard: wizardID, action: actionAdd, kind: models.KindRadio}.String(), Label: "+ Buttons", Style: platform.StyleSecondary},
		},
		{
			platform.Button{CustomID: customID{wizard: wizardID, action: actionSave}.String(), Label: "💾 Save Config", Style: platform.StyleSuccess},
		},
	}
}

func questionModal(wizardID string, kind models.QuestionKind) platform.Modal {
	title := map[models.QuestionKind]string{
		models.KindText:   "Add Text Q",
		models.KindSelect: "Add Dropdown Q",
		models.KindRadio:  "Add Buttons Q",
	}[kind]
	modal := platform.Modal{
		CustomID: customID{wizard: wizardID, action: actionSubmit, kind: kind}.String(),
		Title:    title,
		Inputs: []platform.TextInput{{
			CustomID:  promptInputID,
			Label:     "Prompt",
			Required:  true,
			MaxLength: models.MaxPromptLength,
		}},
	}
	if kind != models.KindText {
		modal.Inputs = append(modal.Inputs, platform.TextInput{
			CustomID:  optionsInputID,
			Label:     "Options (comma separated)",
			Paragraph: true,
			Required:  true,
		})
	}
	return modal
}

func (m *Manager) lookup(id string) *Wizard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wizards[id]
}

// remove drops w. The caller holds w.mu.
func (m *Manager) remove(w *Wizard) {
	if w.timer != nil {
		w.timer.Stop()
	}
	m.mu.Lock()
	delete(m.wizards, w.ID)
	m.mu.Unlock()
}

// touch restarts the inactivity timer. The caller holds w.mu.
func (m *Manager) touch(w *Wizard) {
	w.deadline = time.Now().Add(m.timeout)
	if w.timer == nil {
		id := w.ID
		w.timer = time.AfterFunc(m.timeout, func() { m.expire(id) })
		return
	}
	w.timer.Reset(m.timeout)
}

func (m *Manager) expire(id string) {
	w := m.lookup(id)
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done || time.Now().Before(w.deadline) {
		return
	}
	w.done = true
	m.remove(w)
	m.logger.Info().Str("wizard", id).Int("questions", len(w.Questions)).Msg("setup wizard expired unsaved")
}
