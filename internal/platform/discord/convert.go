package discord

import (
	"bytes"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.StylePrimary:   discordgo.PrimaryButton,
	platform.StyleSecondary: discordgo.SecondaryButton,
	platform.StyleSuccess:   discordgo.SuccessButton,
	platform.StyleDanger:    discordgo.DangerButton,
}

func toComponents(rows []platform.Row) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		ar := discordgo.ActionsRow{Components: make([]discordgo.MessageComponent, 0, len(row))}
		for _, c := range row {
			switch v := c.(type) {
			case platform.Button:
				style, ok := buttonStyles[v.Style]
				if !ok {
					style = discordgo.SecondaryButton
				}
				ar.Components = append(ar.Components, discordgo.Button{
					CustomID: v.CustomID,
					Label:    platform.Truncate(v.Label, 80),
					Style:    style,
					Disabled: v.Disabled,
				})
			case platform.SelectMenu:
				opts := make([]discordgo.SelectMenuOption, 0, len(v.Options))
				for _, o := range v.Options {
					opts = append(opts, discordgo.SelectMenuOption{
						Label: platform.Truncate(o, 100),
						Value: platform.Truncate(o, 100),
					})
				}
				ar.Components = append(ar.Components, discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    v.CustomID,
					Placeholder: v.Placeholder,
					MaxValues:   1,
					Options:     opts,
					Disabled:    v.Disabled,
				})
			}
		}
		if len(ar.Components) > 0 {
			out = append(out, ar)
		}
	}
	return out
}

func toModal(m platform.Modal) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  in.CustomID,
				Label:     platform.Truncate(in.Label, 45),
				Style:     style,
				Required:  in.Required,
				MaxLength: in.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   m.CustomID,
		Title:      platform.Truncate(m.Title, 45),
		Components: rows,
	}
}

func toEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.ThumbnailURL != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
		}
		out = append(out, me)
	}
	return out
}

func toMessageSend(msg platform.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
	}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return send
}

func fromMessage(m *discordgo.Message) platform.Message {
	out := platform.Message{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, platform.Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return out
}

func fromUser(u *discordgo.User, nick string) models.Member {
	if u == nil {
		return models.Member{}
	}
	display := nick
	if display == "" {
		display = u.GlobalName
	}
	return models.Member{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: display,
		AvatarURL:   u.AvatarURL(""),
	}
}

// fromInteraction converts an interaction. guildName is resolved by the caller.
func fromInteraction(i *discordgo.Interaction, guildName string) (*platform.Interaction, error) {
	ix := &platform.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		GuildName: guildName,
		ChannelID: i.ChannelID,
	}
	switch {
	case i.Member != nil:
		ix.Member = fromUser(i.Member.User, i.Member.Nick)
		ix.IsAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	case i.User != nil:
		ix.Member = fromUser(i.User, "")
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		ix.Kind = platform.KindCommand
		ix.CommandName = data.Name
		ix.Options = make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			ix.Options[opt.Name] = fmt.Sprint(opt.Value)
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		ix.Kind = platform.KindComponent
		ix.CustomID = data.CustomID
		ix.Values = data.Values
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		ix.Kind = platform.KindModalSubmit
		ix.CustomID = data.CustomID
		ix.Fields = modalFields(data.Components)
	default:
		return nil, fmt.Errorf("%w: interaction type %d", platform.ErrUnknownInteraction, i.Type)
	}
	return ix, nil
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if in, ok := rc.(*discordgo.TextInput); ok {
				fields[in.CustomID] = in.Value
			}
		}
	}
	return fields
}

var optionTypes = map[platform.OptionType]discordgo.ApplicationCommandOptionType{
	platform.OptionString: discordgo.ApplicationCommandOptionString,
	platform.OptionRole:   discordgo.ApplicationCommandOptionRole,
}

func toCommand(c platform.Command) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{Name: c.Name, Description: c.Description}
	if c.AdminOnly {
		perm := int64(discordgo.PermissionAdministrator)
		cmd.DefaultMemberPermissions = &perm
	}
	for _, o := range c.Options {
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        optionTypes[o.Type],
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		})
	}
	return cmd
}
