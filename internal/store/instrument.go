package store

import (
	"context"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/metrics"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

// instrumented counts Save and Load outcomes per backend.
type instrumented struct {
	ConfigStore
}

// Instrument wraps s with operation counters.
func Instrument(s ConfigStore) ConfigStore {
	if _, ok := s.(instrumented); ok {
		return s
	}
	return instrumented{ConfigStore: s}
}

func (i instrumented) Save(ctx context.Context, rec *models.ConfigRecord) error {
	err := i.ConfigStore.Save(ctx, rec)
	metrics.ConfigStoreOps.WithLabelValues("save", i.Backend(), outcome(err, true)).Inc()
	return err
}

func (i instrumented) Load(ctx context.Context) (*models.ConfigRecord, error) {
	rec, err := i.ConfigStore.Load(ctx)
	metrics.ConfigStoreOps.WithLabelValues("load", i.Backend(), outcome(err, rec != nil)).Inc()
	return rec, err
}

func outcome(err error, found bool) string {
	switch {
	case err != nil:
		return "error"
	case !found:
		return "absent"
	default:
		return "ok"
	}
}
