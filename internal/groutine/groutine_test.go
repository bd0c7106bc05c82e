package groutine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_NamesContext(t *testing.T) {
	names := make(chan string, 1)
	Go(context.Background(), "worker-42", func(ctx context.Context) {
		names <- Name(ctx)
	})

	select {
	case name := <-names:
		assert.Equal(t, "worker-42", name)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestGo_NilParent(t *testing.T) {
	done := make(chan struct{})
	//nolint:staticcheck // nil parent is part of the contract
	Go(nil, "nil-parent", func(ctx context.Context) {
		assert.NotNil(t, ctx)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestName_Unset(t *testing.T) {
	assert.Empty(t, Name(context.Background()))
	//nolint:staticcheck
	assert.Empty(t, Name(nil))
}

func TestAwait(t *testing.T) {
	t.Run("returns the result", func(t *testing.T) {
		v, err := Await(context.Background(), "answer", func(ctx context.Context) (int, error) {
			assert.Equal(t, "answer", Name(ctx))
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("returns the error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Await(context.Background(), "failing", func(context.Context) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("stops waiting on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		release := make(chan struct{})
		defer close(release)

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		v, err := Await(ctx, "stuck", func(context.Context) (*int, error) {
			<-release
			n := 1
			return &n, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, v)
	})
}
