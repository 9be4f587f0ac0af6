package service

import (
	"context"
	"errors"
	"testing"

	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenKV struct{}

func (brokenKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (brokenKV) Set(ctx context.Context, key, value string) error {
	return errors.New("storage unavailable")
}

func (brokenKV) Delete(ctx context.Context, key string) error {
	return errors.New("storage unavailable")
}

func TestMarkShownIsIdempotent(t *testing.T) {
	kv, err := memory.NewKeyValueRepository("")
	require.NoError(t, err)
	hints := NewHintService(kv, logger.NewNopLogger())
	ctx := context.Background()

	assert.True(t, hints.ShouldShow(ctx, HintSearchLike))

	require.NoError(t, hints.MarkShown(ctx, HintSearchLike))
	assert.False(t, hints.ShouldShow(ctx, HintSearchLike))

	require.NoError(t, hints.MarkShown(ctx, HintSearchLike))
	assert.False(t, hints.ShouldShow(ctx, HintSearchLike))

	// keys are independent
	assert.True(t, hints.ShouldShow(ctx, "another-hint"))
}

func TestHintsSurviveRestart(t *testing.T) {
	path := t.TempDir() + "/store.gob"
	ctx := context.Background()

	kv, err := memory.NewKeyValueRepository(path)
	require.NoError(t, err)
	require.NoError(t, NewHintService(kv, logger.NewNopLogger()).MarkShown(ctx, HintSearchLike))

	reopened, err := memory.NewKeyValueRepository(path)
	require.NoError(t, err)
	assert.False(t, NewHintService(reopened, logger.NewNopLogger()).ShouldShow(ctx, HintSearchLike))
}

func TestHintsWithBrokenStorage(t *testing.T) {
	hints := NewHintService(brokenKV{}, logger.NewNopLogger())
	ctx := context.Background()

	assert.False(t, hints.ShouldShow(ctx, HintSearchLike))
	assert.Error(t, hints.MarkShown(ctx, HintSearchLike))
}
