package transport_test

import (
	"context"
	"sync"
	"testing"

	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/tlstream/transport"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	exec, execErr := rxp.New()
	require.NoError(t, execErr)
	t.Cleanup(func() {
		_ = exec.Close()
	})
	return rxp.With(context.Background(), exec)
}

func TestPipe_ReadWrite(t *testing.T) {
	ctx := testContext(t)
	a, b := transport.Pipe(ctx)

	wg := new(sync.WaitGroup)
	wg.Add(1)
	b.Read().OnComplete(func(ctx context.Context, in transport.Inbound, cause error) {
		defer wg.Done()
		require.NoError(t, cause)
		require.Equal(t, 5, in.Received())
		p := make([]byte, 5)
		n, rErr := in.Reader().Read(p)
		require.NoError(t, rErr)
		require.Equal(t, "hello", string(p[:n]))
	})

	a.Write([]byte("hello")).OnComplete(func(ctx context.Context, n int, cause error) {
		require.NoError(t, cause)
		require.Equal(t, 5, n)
	})
	wg.Wait()
}

func TestPipe_WriteCap(t *testing.T) {
	ctx := testContext(t)
	a, _ := transport.Pipe(ctx, transport.WithWriteCap(4))

	wg := new(sync.WaitGroup)
	wg.Add(1)
	a.Write([]byte("0123456789")).OnComplete(func(ctx context.Context, n int, cause error) {
		defer wg.Done()
		require.NoError(t, cause)
		require.Equal(t, 4, n)
	})
	wg.Wait()
}

func TestPipe_CloseEOF(t *testing.T) {
	ctx := testContext(t)
	a, b := transport.Pipe(ctx)

	wg := new(sync.WaitGroup)
	wg.Add(1)
	a.Write([]byte("tail")).OnComplete(func(ctx context.Context, n int, cause error) {
		require.NoError(t, cause)
		a.Close().OnComplete(func(ctx context.Context, _ async.Void, cause error) {
			require.NoError(t, cause)
			wg.Done()
		})
	})
	wg.Wait()

	// buffered bytes drain before the end of stream is observed
	wg.Add(1)
	b.Read().OnComplete(func(ctx context.Context, in transport.Inbound, cause error) {
		defer wg.Done()
		require.NoError(t, cause)
		require.Equal(t, 4, in.Received())
		in.Reader().Discard(4)
	})
	wg.Wait()

	wg.Add(1)
	b.Read().OnComplete(func(ctx context.Context, in transport.Inbound, cause error) {
		defer wg.Done()
		require.NoError(t, cause)
		require.Equal(t, 0, in.Received())
	})
	wg.Wait()
}

func TestPipe_CloseAbrupt(t *testing.T) {
	ctx := testContext(t)
	a, b := transport.Pipe(ctx)

	wg := new(sync.WaitGroup)
	wg.Add(1)
	b.Read().OnComplete(func(ctx context.Context, in transport.Inbound, cause error) {
		defer wg.Done()
		require.Error(t, cause)
		require.True(t, transport.IsAborted(cause))
	})
	a.CloseAbrupt()
	wg.Wait()

	wg.Add(1)
	b.Write([]byte("x")).OnComplete(func(ctx context.Context, n int, cause error) {
		defer wg.Done()
		require.True(t, transport.IsAborted(cause))
	})
	wg.Wait()
}

func TestAdaptToNetConn(t *testing.T) {
	ctx := testContext(t)
	a, b := transport.Pipe(ctx)
	ac := transport.AdaptToNetConn(a)
	bc := transport.AdaptToNetConn(b)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p := make([]byte, 4)
		n, err := bc.Read(p)
		require.NoError(t, err)
		require.Equal(t, "ping", string(p[:n]))
		_, err = bc.Write([]byte("pong"))
		require.NoError(t, err)
	}()

	_, err := ac.Write([]byte("ping"))
	require.NoError(t, err)
	p := make([]byte, 4)
	n, err := ac.Read(p)
	require.NoError(t, err)
	require.Equal(t, "pong", string(p[:n]))
	<-done
	require.NoError(t, ac.Close())
}
