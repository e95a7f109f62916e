package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform/platformtest"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
)

const (
	guildID = "guild-1"
	roleID  = "role-unverified"
	dataCh  = "data"
	logCh   = "log"
)

var alice = models.Member{ID: "user-1", Username: "alice", AvatarURL: "https://cdn/alice.png"}

type fixture struct {
	engine *Engine
	client platformtest.Client
}

func newFixture(t *testing.T, rec *models.ConfigRecord, opts Options) *fixture {
	t.Helper()
	client := platformtest.NewClient(dataCh, logCh)
	if rec != nil {
		require.NoError(t, store.NewChannelStore(client, dataCh).Save(context.Background(), rec))
	}
	if opts.LogChannelID == "" {
		opts.LogChannelID = logCh
	}
	e := New(store.NewChannelStore(client, dataCh), client, opts, zerolog.Nop())
	t.Cleanup(e.Close)
	return &fixture{engine: e, client: client}
}

func startIx(kind platform.InteractionKind, member models.Member) *platform.Interaction {
	ix := &platform.Interaction{Kind: kind, GuildID: guildID, Member: member}
	if kind == platform.KindComponent {
		ix.CustomID = StartID
	}
	return ix
}

func componentIx(customID string, values ...string) *platform.Interaction {
	return &platform.Interaction{Kind: platform.KindComponent, GuildID: guildID, Member: alice, CustomID: customID, Values: values}
}

func modalIx(customID, answer string) *platform.Interaction {
	return &platform.Interaction{
		Kind:     platform.KindModalSubmit,
		GuildID:  guildID,
		Member:   alice,
		CustomID: customID,
		Fields:   map[string]string{answerInputID: answer},
	}
}

func (f *fixture) auditEmbeds(t *testing.T) []platform.Embed {
	t.Helper()
	var out []platform.Embed
	for _, m := range f.client.Posted(logCh) {
		out = append(out, f.client.Embeds(m.ID)...)
	}
	return out
}

func TestTextQuestionScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{
		UnverifiedRoleID: roleID,
		Questions:        models.Questions{models.TextQuestion{Text: "Name?"}},
	}, Options{})
	require.NoError(t, f.client.AddRole(ctx, guildID, alice.ID, roleID))

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, startIx(platform.KindComponent, alice), r))
	require.Equal(t, []string{"Modal"}, r.Methods())
	modal := r.Last().Modal
	assert.Equal(t, "Question 1", modal.Title)
	require.Len(t, modal.Inputs, 1)
	assert.Equal(t, "Name?", modal.Inputs[0].Label)

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, modalIx(modal.CustomID, "Alice"), r))
	assert.Equal(t, []string{"Defer", "Followup"}, r.Methods())
	assert.Contains(t, r.Last().Reply.Content, "Verification Complete")
	assert.Contains(t, r.Last().Reply.Content, "Un-verified role removed")
	assert.True(t, r.Last().Reply.Ephemeral)

	assert.False(t, f.client.Has(guildID, alice.ID, roleID))

	embeds := f.auditEmbeds(t)
	require.Len(t, embeds, 1)
	assert.Equal(t, []platform.EmbedField{{Name: "Name?", Value: "Alice"}}, embeds[0].Fields)
	assert.Equal(t, "🛡️ Verified: alice", embeds[0].Title)
	assert.Equal(t, alice.AvatarURL, embeds[0].ThumbnailURL)
	assert.Zero(t, f.engine.Active())
}

func TestFullFlowRecordsAnswersInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{
		UnverifiedRoleID: roleID,
		Questions: models.Questions{
			models.TextQuestion{Text: "Name?"},
			models.SelectQuestion{Text: "Village?", Options: []string{"Leaf", "Sand", "Mist"}},
			models.RadioQuestion{Text: "Ninja?", Options: []string{"Yes", "No"}},
		},
	}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, startIx(platform.KindComponent, alice), r))
	modal := r.Last().Modal

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, modalIx(modal.CustomID, " Alice "), r))
	require.Equal(t, []string{"Reply"}, r.Methods())
	selects := platformtest.Selects(r.Last().Reply.Components)
	require.Len(t, selects, 1)
	assert.Equal(t, []string{"Leaf", "Sand", "Mist"}, selects[0].Options)
	assert.Contains(t, r.Last().Reply.Content, "Q2")

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(selects[0].CustomID, "Leaf"), r))
	require.Equal(t, []string{"Update", "Followup"}, r.Methods())
	assert.True(t, platformtest.Selects(r.Calls[0].Reply.Components)[0].Disabled)
	buttons := platformtest.Buttons(r.Last().Reply.Components)
	require.Len(t, buttons, 2)

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(buttons[1].CustomID), r))
	require.Equal(t, []string{"Update", "Followup"}, r.Methods())
	for _, b := range platformtest.Buttons(r.Calls[0].Reply.Components) {
		assert.True(t, b.Disabled)
	}
	assert.Contains(t, r.Last().Reply.Content, "Verification Complete")

	embeds := f.auditEmbeds(t)
	require.Len(t, embeds, 1)
	assert.Equal(t, []platform.EmbedField{
		{Name: "Name?", Value: "Alice"},
		{Name: models.ChoiceLabel, Value: "Leaf"},
		{Name: models.SelectionLabel, Value: "No"},
	}, embeds[0].Fields)
}

func TestRadioAdvancesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{
		Questions: models.Questions{
			models.RadioQuestion{Text: "Pick", Options: []string{"A", "B"}},
			models.TextQuestion{Text: "Why?"},
		},
	}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, startIx(platform.KindComponent, alice), r))
	require.Equal(t, []string{"Reply"}, r.Methods())
	buttons := platformtest.Buttons(r.Last().Reply.Components)
	require.Len(t, buttons, 2)
	assert.Equal(t, "A", buttons[0].Label)
	assert.Equal(t, "B", buttons[1].Label)

	sid, ok := f.engine.SessionFor(guildID, alice.ID)
	require.True(t, ok)

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(buttons[1].CustomID), r))
	snap, ok := f.engine.Snapshot(sid)
	require.True(t, ok)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, []models.Answer{{Label: models.SelectionLabel, Value: "B"}}, snap.Answers)

	// A text question after an acknowledged interaction is offered as a button.
	require.Equal(t, []string{"Update", "Followup"}, r.Methods())
	answer := platformtest.Buttons(r.Last().Reply.Components)
	require.Len(t, answer, 1)
	assert.Equal(t, "Answer", answer[0].Label)

	// Pressing the old control again changes nothing.
	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(buttons[0].CustomID), r))
	assert.Equal(t, msgStale, r.Last().Reply.Content)
	snap, _ = f.engine.Snapshot(sid)
	assert.Equal(t, 1, snap.Cursor)
	assert.Len(t, snap.Answers, 1)

	// The Answer button opens the modal for the current step.
	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(answer[0].CustomID), r))
	require.Equal(t, []string{"Modal"}, r.Methods())
	assert.Equal(t, "Question 2", r.Last().Modal.Title)
}

func TestConsecutiveTextQuestionsUseAnswerButton(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{
		Questions: models.Questions{models.TextQuestion{Text: "One"}, models.TextQuestion{Text: "Two"}},
	}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	require.Equal(t, []string{"Modal"}, r.Methods())

	r2 := &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, modalIx(r.Last().Modal.CustomID, "first"), r2))
	require.Equal(t, []string{"Reply"}, r2.Methods())
	buttons := platformtest.Buttons(r2.Last().Reply.Components)
	require.Len(t, buttons, 1)
	assert.Equal(t, "Answer", buttons[0].Label)
}

func TestNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.ConfigRecord
	}{
		{"no record", nil},
		{"no questions", &models.ConfigRecord{UnverifiedRoleID: roleID}},
		{"select without options", &models.ConfigRecord{Questions: models.Questions{models.SelectQuestion{Text: "Pick"}}}},
		{"select option longer than the platform allows", &models.ConfigRecord{Questions: models.Questions{
			models.SelectQuestion{Text: "Pick", Options: []string{strings.Repeat("x", 120), "short"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rec, Options{})
			r := &platformtest.Responder{}
			require.NoError(t, f.engine.Start(context.Background(), startIx(platform.KindCommand, alice), r))
			assert.Equal(t, []string{"Reply"}, r.Methods())
			assert.Equal(t, msgNotConfigured, r.Last().Reply.Content)
			assert.True(t, r.Last().Reply.Ephemeral)
			assert.Zero(t, f.engine.Active())
		})
	}
}

func TestStoreFailureReportsNotConfigured(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.client.FailRead = errors.New("missing access")

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(context.Background(), startIx(platform.KindCommand, alice), r))
	assert.Equal(t, msgNotConfigured, r.Last().Reply.Content)
	assert.Zero(t, f.engine.Active())
}

func finishSingleText(t *testing.T, f *fixture) *platformtest.Responder {
	t.Helper()
	ctx := context.Background()
	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	r2 := &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, modalIx(r.Last().Modal.CustomID, "x"), r2))
	return r2
}

func TestRoleRevokeFailureDoesNotBlockCompletion(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{
		UnverifiedRoleID: roleID,
		Questions:        models.Questions{models.TextQuestion{Text: "Name?"}},
	}, Options{})
	f.client.FailRemove = errors.New("missing permissions")

	r := finishSingleText(t, f)
	assert.Contains(t, r.Last().Reply.Content, "Verification Complete")
	assert.Contains(t, r.Last().Reply.Content, "Failed to remove role: missing permissions")
	assert.Len(t, f.auditEmbeds(t), 1)
	assert.Zero(t, f.engine.Active())
}

func TestNoRoleConfigured(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.TextQuestion{Text: "Name?"}}}, Options{})

	r := finishSingleText(t, f)
	assert.Contains(t, r.Last().Reply.Content, "No role configured")
	assert.Empty(t, f.client.Removed)
}

func TestAuditFailureDoesNotBlockCompletion(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.TextQuestion{Text: "Name?"}}}, Options{LogChannelID: "missing"})

	r := finishSingleText(t, f)
	assert.Contains(t, r.Last().Reply.Content, "Verification Complete")
}

func TestRepeatRunsProduceSeparateAudits(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{
		UnverifiedRoleID: roleID,
		Questions:        models.Questions{models.TextQuestion{Text: "Name?"}},
	}, Options{})

	finishSingleText(t, f)
	r := finishSingleText(t, f)
	assert.Contains(t, r.Last().Reply.Content, "Verification Complete")
	assert.Len(t, f.auditEmbeds(t), 2)
	assert.Len(t, f.client.Removed, 2)
}

func TestSessionBelongsToMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.RadioQuestion{Text: "Pick", Options: []string{"A"}}}}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	btn := platformtest.Buttons(r.Last().Reply.Components)[0]

	ix := componentIx(btn.CustomID)
	ix.Member = models.Member{ID: "user-2", Username: "bob"}
	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, ix, r))
	assert.Equal(t, msgNotYours, r.Last().Reply.Content)
	assert.Equal(t, 1, f.engine.Active())
}

func TestSelectRejectsUnknownValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.SelectQuestion{Text: "Pick", Options: []string{"A", "B"}}}}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	sel := platformtest.Selects(r.Last().Reply.Components)[0]

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(sel.CustomID, "Z"), r))
	assert.Equal(t, msgInvalidAnswer, r.Last().Reply.Content)
	assert.Empty(t, f.auditEmbeds(t))
}

func TestRestartSupersedesPreviousSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{
		models.RadioQuestion{Text: "Pick", Options: []string{"A", "B"}},
		models.RadioQuestion{Text: "Again", Options: []string{"C"}},
	}}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	first := platformtest.Buttons(r.Last().Reply.Components)[0]
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(first.CustomID), &platformtest.Responder{}))

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	assert.Contains(t, r.Last().Reply.Content, "Q1")
	assert.Equal(t, 1, f.engine.Active())

	sid, ok := f.engine.SessionFor(guildID, alice.ID)
	require.True(t, ok)
	snap, _ := f.engine.Snapshot(sid)
	assert.Zero(t, snap.Cursor)
	assert.Empty(t, snap.Answers)
}

func TestSessionTimeoutAbandons(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	f := newFixture(t, &models.ConfigRecord{
		UnverifiedRoleID: roleID,
		Questions: models.Questions{
			models.RadioQuestion{Text: "Pick", Options: []string{"A"}},
			models.RadioQuestion{Text: "Again", Options: []string{"B"}},
		},
	}, Options{Timeout: 30 * time.Millisecond})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	btn := platformtest.Buttons(r.Last().Reply.Components)[0]

	require.Eventually(t, func() bool { return f.engine.Active() == 0 }, time.Second, 5*time.Millisecond)

	r = &platformtest.Responder{}
	require.NoError(t, f.engine.HandleInteraction(ctx, componentIx(btn.CustomID), r))
	assert.Equal(t, msgExpired, r.Last().Reply.Content)
	assert.Empty(t, f.auditEmbeds(t))
	assert.Empty(t, f.client.Removed)
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string) (bool, time.Time, error) {
	return false, time.Unix(1_700_000_600, 0), nil
}

func TestRateLimitedStart(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.TextQuestion{Text: "Name?"}}}, Options{Limiter: denyLimiter{}})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(context.Background(), startIx(platform.KindCommand, alice), r))
	assert.True(t, strings.HasPrefix(r.Last().Reply.Content, "⏳"))
	assert.Contains(t, r.Last().Reply.Content, "<t:1700000600:R>")
	assert.Zero(t, f.engine.Active())
}

func TestTextAnswerUsesModalLabel(t *testing.T) {
	ctx := context.Background()
	prompt := "Please describe in a few words how you found our village and why"
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.TextQuestion{Text: prompt}}}, Options{})

	r := &platformtest.Responder{}
	require.NoError(t, f.engine.Start(ctx, startIx(platform.KindCommand, alice), r))
	modal := r.Last().Modal
	require.Len(t, modal.Inputs, 1)
	label := modal.Inputs[0].Label
	assert.Len(t, []rune(label), modalLabelLength)

	require.NoError(t, f.engine.HandleInteraction(ctx, modalIx(modal.CustomID, "By the river"), &platformtest.Responder{}))
	embeds := f.auditEmbeds(t)
	require.Len(t, embeds, 1)
	assert.Equal(t, []platform.EmbedField{{Name: label, Value: "By the river"}}, embeds[0].Fields)
}

// stallLimiter blocks until its context ends, like an unreachable Redis.
type stallLimiter struct{}

func (stallLimiter) Allow(ctx context.Context, key string) (bool, time.Time, error) {
	<-ctx.Done()
	return true, time.Time{}, ctx.Err()
}

func TestSlowLimiterIsBoundedAndFailsOpen(t *testing.T) {
	f := newFixture(t, &models.ConfigRecord{Questions: models.Questions{models.TextQuestion{Text: "Name?"}}},
		Options{Limiter: stallLimiter{}, ScanTimeout: 50 * time.Millisecond})

	r := &platformtest.Responder{}
	start := time.Now()
	require.NoError(t, f.engine.Start(context.Background(), startIx(platform.KindCommand, alice), r))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"Modal"}, r.Methods())
	assert.Equal(t, 1, f.engine.Active())
}

func TestUnknownCustomID(t *testing.T) {
	f := newFixture(t, nil, Options{})
	err := f.engine.HandleInteraction(context.Background(), componentIx("verify:nope"), &platformtest.Responder{})
	assert.ErrorIs(t, err, platform.ErrUnknownInteraction)
}

func TestAuditEmbedTruncatesAndFillsEmptyValues(t *testing.T) {
	embed := AuditEmbed(models.AuditRecord{
		Member:  alice,
		Answers: []models.Answer{{Label: strings.Repeat("q", 300), Value: ""}},
	})
	require.Len(t, embed.Fields, 1)
	assert.Len(t, []rune(embed.Fields[0].Name), fieldNameLength)
	assert.Equal(t, "—", embed.Fields[0].Value)
}
