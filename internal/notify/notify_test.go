package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_KeepsMostRecent(t *testing.T) {
	r := NewRing(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r.Info(ctx, fmt.Sprintf("msg-%d", i))
	}

	recent := r.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "msg-2", recent[0].Message)
	assert.Equal(t, "msg-4", recent[2].Message)
}

func TestRing_LevelsAndClear(t *testing.T) {
	r := NewRing(10)
	ctx := context.Background()

	r.Success(ctx, "saved")
	r.Error(ctx, "failed")
	r.PromptLogin(ctx, "sign in to continue")

	recent := r.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, LevelSuccess, recent[0].Level)
	assert.Equal(t, LevelError, recent[1].Level)
	assert.Equal(t, LevelLoginPrompt, recent[2].Level)
	assert.NotEmpty(t, recent[0].ID)

	r.Clear()
	assert.Empty(t, r.Recent())
}

func TestMulti_FansOut(t *testing.T) {
	a := NewRing(10)
	b := NewRing(10)
	m := Multi{a, b}

	m.Error(context.Background(), "boom")

	require.Len(t, a.Recent(), 1)
	require.Len(t, b.Recent(), 1)
	assert.Equal(t, "boom", b.Recent()[0].Message)
}
