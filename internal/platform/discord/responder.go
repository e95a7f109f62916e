package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

// responder answers one interaction through the webhook endpoints.
type responder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *responder) respond(ctx context.Context, typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{Type: typ, Data: data}, discordgo.WithContext(ctx))
}

func replyData(reply platform.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Components),
		Flags:      flags(reply.Ephemeral),
	}
	if reply.ClearComponents {
		data.Components = []discordgo.MessageComponent{}
	}
	return data
}

func (r *responder) Reply(ctx context.Context, reply platform.Reply) error {
	return r.respond(ctx, discordgo.InteractionResponseChannelMessageWithSource, replyData(reply))
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	return r.respond(ctx, discordgo.InteractionResponseDeferredChannelMessageWithSource,
		&discordgo.InteractionResponseData{Flags: flags(ephemeral)})
}

func (r *responder) Update(ctx context.Context, reply platform.Reply) error {
	data := replyData(reply)
	data.Flags = 0
	if data.Components == nil {
		data.Components = []discordgo.MessageComponent{}
	}
	return r.respond(ctx, discordgo.InteractionResponseUpdateMessage, data)
}

func (r *responder) DeferUpdate(ctx context.Context) error {
	return r.respond(ctx, discordgo.InteractionResponseDeferredMessageUpdate, nil)
}

func (r *responder) Modal(ctx context.Context, m platform.Modal) error {
	return r.respond(ctx, discordgo.InteractionResponseModal, toModal(m))
}

func (r *responder) Edit(ctx context.Context, reply platform.Reply) error {
	components := toComponents(reply.Components)
	if reply.ClearComponents || components == nil {
		components = []discordgo.MessageComponent{}
	}
	edit := &discordgo.WebhookEdit{
		Content:    &reply.Content,
		Components: &components,
	}
	if embeds := toEmbeds(reply.Embeds); embeds != nil {
		edit.Embeds = &embeds
	}
	_, err := r.s.InteractionResponseEdit(r.i, edit, discordgo.WithContext(ctx))
	return err
}

func (r *responder) Followup(ctx context.Context, reply platform.Reply) error {
	_, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Components),
		Flags:      flags(reply.Ephemeral),
	}, discordgo.WithContext(ctx))
	return err
}
