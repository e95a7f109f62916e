package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

const (
	// SentinelPrefix marks a channel message as the configuration document.
	SentinelPrefix = "CONFIG_VERIFY:"
	// ScanWindow is how many recent messages are searched for the sentinel.
	ScanWindow = 20
)

var ErrRecordTooLarge = errors.New("config record exceeds message length limit")

// ChannelStore keeps the document in a chat channel message. It only sees the
// newest ScanWindow messages, so a sentinel message pushed further back by
// other traffic is no longer found and the next Save posts a fresh copy.
type ChannelStore struct {
	channels  platform.Channels
	channelID string
}

// NewChannelStore creates a store on channelID.
func NewChannelStore(channels platform.Channels, channelID string) *ChannelStore {
	return &ChannelStore{channels: channels, channelID: channelID}
}

// Backend returns "channel".
func (s *ChannelStore) Backend() string { return "channel" }

// Close is a no-op; the platform session is owned by the caller.
func (s *ChannelStore) Close() {}

// Ping checks that the channel can be read.
func (s *ChannelStore) Ping(ctx context.Context) error {
	_, err := s.channels.RecentMessages(ctx, s.channelID, 1)
	return err
}

// find returns the newest sentinel message inside the scan window.
func (s *ChannelStore) find(ctx context.Context) (*platform.Message, error) {
	if s.channelID == "" {
		return nil, fmt.Errorf("config channel not configured")
	}
	msgs, err := s.channels.RecentMessages(ctx, s.channelID, ScanWindow)
	if err != nil {
		return nil, fmt.Errorf("read config channel %s: %w", s.channelID, err)
	}
	for i := range msgs {
		if strings.HasPrefix(msgs[i].Content, SentinelPrefix) {
			return &msgs[i], nil
		}
	}
	return nil, nil
}

// Save edits the sentinel message in place, or posts one when none is visible.
func (s *ChannelStore) Save(ctx context.Context, rec *models.ConfigRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	body := SentinelPrefix + string(data)
	if n := utf8.RuneCountInString(body); n > platform.MaxMessageLength {
		return fmt.Errorf("%w: %d > %d", ErrRecordTooLarge, n, platform.MaxMessageLength)
	}

	existing, err := s.find(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := s.channels.EditMessage(ctx, s.channelID, existing.ID, body); err != nil {
			return fmt.Errorf("edit config message %s: %w", existing.ID, err)
		}
		return nil
	}
	if _, err := s.channels.SendMessage(ctx, s.channelID, platform.OutgoingMessage{Content: body}); err != nil {
		return fmt.Errorf("post config message: %w", err)
	}
	return nil
}

// Load returns the record held by the newest visible sentinel message.
func (s *ChannelStore) Load(ctx context.Context) (*models.ConfigRecord, error) {
	msg, err := s.find(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	return decodeRecord([]byte(strings.TrimPrefix(msg.Content, SentinelPrefix)))
}
