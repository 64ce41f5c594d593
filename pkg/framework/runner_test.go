package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

// blockingCloser blocks its runner until closed, like a stream read
// pinned to a file descriptor.
type blockingCloser struct {
	unblock chan struct{}
	closes  int
}

func newBlockingCloser() *blockingCloser {
	return &blockingCloser{unblock: make(chan struct{})}
}

func (c *blockingCloser) Close() error {
	c.closes++
	close(c.unblock)
	return nil
}

func (c *blockingCloser) wait() error {
	<-c.unblock
	return errors.New("closed under me")
}

func TestRunWithContextCloserCancelUnblocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newBlockingCloser()

	done := make(chan error, 1)
	go func() { done <- RunWithContextCloser(ctx, c, c.wait) }()
	cancel()

	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, 1, c.closes)
}

func TestRunWithContextCloserReportsRunError(t *testing.T) {
	c := newBlockingCloser()
	fail := errors.New("device gone")
	err := RunWithContextCloser(context.Background(), c, func() error {
		return fail
	})
	require.Equal(t, fail, err)
	require.Equal(t, 1, c.closes)
}

func TestRunnerWaitAggregates(t *testing.T) {
	fail := errors.New("pump broke")
	err := NewRunner().Go(
		runFunc(func(context.Context) error { return nil }),
		runFunc(func(context.Context) error { return context.Canceled }),
		runFunc(func(context.Context) error { return fail }),
	).Wait()
	// cancellations are not failures; a sole error comes back as-is
	require.Equal(t, fail, err)
}

func TestAggregatedError(t *testing.T) {
	var e AggregatedError
	require.NoError(t, e.Aggregate())

	first := errors.New("first")
	e.Add(nil, first)
	require.Equal(t, first, e.Aggregate())

	e.Add(errors.New("second"))
	err := e.Aggregate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple errors:")
	require.Contains(t, err.Error(), "second")
}
