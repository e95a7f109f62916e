package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(ctx, sampleRecord()))
	second := &models.ConfigRecord{UnverifiedRoleID: "9", Questions: models.Questions{models.TextQuestion{Text: "Why?"}}, WelcomeMessage: "hi {user}"}
	require.NoError(t, s.Save(ctx, second))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	var rows int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config_documents`).Scan(&rows))
	assert.Equal(t, 1, rows)
}
