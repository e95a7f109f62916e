package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := sampleRecord()
	require.NoError(t, s.Save(ctx, rec))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.True(t, mr.Exists(configKey(documentName)))
}

func TestRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url")
	assert.Error(t, err)
}
