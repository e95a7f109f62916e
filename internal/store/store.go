package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

// documentName is the key of the verification document in every backend.
const documentName = "verify"

// ConfigStore persists the single authoritative configuration document.
// Load returns (nil, nil) when nothing has been committed. Save overwrites.
type ConfigStore interface {
	Save(ctx context.Context, rec *models.ConfigRecord) error
	Load(ctx context.Context) (*models.ConfigRecord, error)
	Ping(ctx context.Context) error
	Backend() string
	Close()
}

func encodeRecord(rec *models.ConfigRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode config: nil record")
	}
	if rec.Questions == nil {
		rec = &models.ConfigRecord{UnverifiedRoleID: rec.UnverifiedRoleID, Questions: models.Questions{}, WelcomeMessage: rec.WelcomeMessage}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*models.ConfigRecord, error) {
	rec := &models.ConfigRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return rec, nil
}
