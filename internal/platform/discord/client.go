// Package discord implements the platform capabilities on top of discordgo.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

// maxHistory is the largest page the message history endpoint returns.
const maxHistory = 100

// Client performs REST calls for the bot.
type Client struct {
	s *discordgo.Session
}

// NewClient wraps a session.
func NewClient(s *discordgo.Session) *Client {
	return &Client{s: s}
}

// RecentMessages returns up to limit messages of a channel, newest first.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	if limit > maxHistory {
		limit = maxHistory
	}
	msgs, err := c.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("channel history %s: %w", channelID, err)
	}
	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromMessage(m))
	}
	return out, nil
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (*platform.Message, error) {
	m, err := c.s.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", channelID, err)
	}
	out := fromMessage(m)
	return &out, nil
}

// EditMessage replaces a message body.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	if _, err := c.s.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

// AddRole grants a role.
func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RemoveRole revokes a role.
func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}
