package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDo_FailNThenSucceed(t *testing.T) {
	t.Parallel()
	attempts := 0
	fn := func(context.Context) error {
		attempts++
		if attempts <= 3 {
			return errors.New("transient")
		}
		return nil
	}

	err := Policy{}.Do(context.Background(), zap.NewNop(), "sample", fn)
	require.NoError(t, err)
	require.Equal(t, 4, attempts)
}

func TestDo_ImmediateSuccess(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Policy{}.Do(context.Background(), zap.NewNop(), "sample", func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}

func TestDo_MaxAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0
	boom := errors.New("boom")
	err := Policy{MaxAttempts: 3}.Do(context.Background(), zap.NewNop(), "sample", func(context.Context) error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, attempts)
}

func TestDo_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Policy{}.Do(ctx, zap.NewNop(), "sample", func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, attempts)
}
