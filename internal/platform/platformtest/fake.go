// Package platformtest provides in-memory fakes of the platform capabilities.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

var ErrUnknownChannel = errors.New("unknown channel")

// Channels keeps channel histories in memory. Messages are stored oldest first.
type Channels struct {
	mu       sync.Mutex
	next     int
	history  map[string][]platform.Message
	files    map[string][]platform.File
	embeds   map[string][]platform.Embed
	comps    map[string][]platform.Row
	FailRead error
	FailSend error
	FailEdit error
	Reads    int
	Sends    int
	Edits    int
}

// NewChannels creates empty channels with the given ids.
func NewChannels(ids ...string) *Channels {
	c := &Channels{
		history: make(map[string][]platform.Message),
		files:   make(map[string][]platform.File),
		embeds:  make(map[string][]platform.Embed),
		comps:   make(map[string][]platform.Row),
	}
	for _, id := range ids {
		c.history[id] = nil
	}
	return c
}

// Seed appends a message to a channel as if posted by someone else.
func (c *Channels) Seed(channelID string, msg platform.Message) platform.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	if msg.ID == "" {
		msg.ID = strconv.Itoa(c.next)
	}
	msg.ChannelID = channelID
	c.history[channelID] = append(c.history[channelID], msg)
	return msg
}

// RecentMessages returns the newest limit messages, newest first.
func (c *Channels) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reads++
	if c.FailRead != nil {
		return nil, c.FailRead
	}
	msgs, ok := c.history[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channelID)
	}
	out := make([]platform.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// SendMessage appends a message.
func (c *Channels) SendMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (*platform.Message, error) {
	c.mu.Lock()
	c.Sends++
	if c.FailSend != nil {
		c.mu.Unlock()
		return nil, c.FailSend
	}
	if _, ok := c.history[channelID]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channelID)
	}
	c.mu.Unlock()

	m := c.Seed(channelID, platform.Message{Content: msg.Content, AuthorID: "bot"})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[m.ID] = msg.Files
	c.embeds[m.ID] = msg.Embeds
	c.comps[m.ID] = msg.Components
	return &m, nil
}

// EditMessage replaces a message body.
func (c *Channels) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edits++
	if c.FailEdit != nil {
		return c.FailEdit
	}
	msgs := c.history[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Content = content
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

// Posted returns every message in a channel, oldest first.
func (c *Channels) Posted(channelID string) []platform.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.Message(nil), c.history[channelID]...)
}

// Files returns the uploads of a message.
func (c *Channels) Files(messageID string) []platform.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[messageID]
}

// Embeds returns the embeds of a message.
func (c *Channels) Embeds(messageID string) []platform.Embed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.embeds[messageID]
}

// Components returns the controls of a message.
func (c *Channels) Components(messageID string) []platform.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comps[messageID]
}

// Roles records role membership per guild member.
type Roles struct {
	mu         sync.Mutex
	held       map[string]bool
	FailAdd    error
	FailRemove error
	Added      []string
	Removed    []string
}

// NewRoles creates an empty role table.
func NewRoles() *Roles {
	return &Roles{held: make(map[string]bool)}
}

func roleKey(guildID, userID, roleID string) string {
	return guildID + "/" + userID + "/" + roleID
}

// AddRole grants a role.
func (r *Roles) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAdd != nil {
		return r.FailAdd
	}
	k := roleKey(guildID, userID, roleID)
	r.held[k] = true
	r.Added = append(r.Added, k)
	return nil
}

// RemoveRole revokes a role.
func (r *Roles) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailRemove != nil {
		return r.FailRemove
	}
	k := roleKey(guildID, userID, roleID)
	delete(r.held, k)
	r.Removed = append(r.Removed, k)
	return nil
}

// Has reports whether the member holds the role.
func (r *Roles) Has(guildID, userID, roleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[roleKey(guildID, userID, roleID)]
}

// Client combines fake channels and roles into a platform.Client.
type Client struct {
	*Channels
	*Roles
}

// NewClient creates a client with the given channels.
func NewClient(channelIDs ...string) Client {
	return Client{Channels: NewChannels(channelIDs...), Roles: NewRoles()}
}
