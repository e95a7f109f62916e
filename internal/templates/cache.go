// Package templates picks welcome-card backgrounds from a channel.
package templates

import (
	"context"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

const (
	// Window is how many recent messages are searched for attachments.
	Window = 10
	// Newest is how many of the collected attachments are eligible.
	Newest = 3
)

// Cache selects a background template. Nothing is kept between calls.
type Cache struct {
	channels  platform.Channels
	channelID string
	logger    zerolog.Logger
	intn      func(n int) int
}

// New creates a Cache reading channelID.
func New(channels platform.Channels, channelID string, logger zerolog.Logger) *Cache {
	return &Cache{
		channels:  channels,
		channelID: channelID,
		logger:    logger.With().Str("component", "templates").Logger(),
		intn:      rand.Intn,
	}
}

// Pick returns the URL of one of the newest template images, or false when
// the channel holds none within the window or cannot be read.
func (c *Cache) Pick(ctx context.Context) (string, bool) {
	if c.channelID == "" {
		return "", false
	}
	msgs, err := c.channels.RecentMessages(ctx, c.channelID, Window)
	if err != nil {
		c.logger.Warn().Err(err).Str("channel", c.channelID).Msg("template channel unavailable")
		return "", false
	}

	var urls []string
	for _, m := range msgs {
		for _, a := range m.Attachments {
			if isImage(a) {
				urls = append(urls, a.URL)
			}
		}
	}
	if len(urls) == 0 {
		return "", false
	}
	if len(urls) > Newest {
		urls = urls[:Newest]
	}
	return urls[c.intn(len(urls))], true
}

// isImage accepts attachments with an image content type, or with no
// content type at all.
func isImage(a platform.Attachment) bool {
	if a.URL == "" {
		return false
	}
	return a.ContentType == "" || strings.HasPrefix(a.ContentType, "image/")
}
