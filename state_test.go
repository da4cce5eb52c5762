package tlstream_test

import (
	"testing"

	"github.com/brickingsoft/tlstream"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	s := tlstream.StateOpen
	require.True(t, s.Readable())
	require.True(t, s.Writable())

	s.ShutdownRead()
	require.Equal(t, tlstream.StateReadShutdown, s)
	require.False(t, s.Readable())
	require.True(t, s.Writable())

	s.ShutdownWrite()
	require.Equal(t, tlstream.StateFullyShutdown, s)
	require.False(t, s.Readable())
	require.False(t, s.Writable())

	// 已全关后不可逆
	s.ShutdownRead()
	s.ShutdownWrite()
	require.Equal(t, tlstream.StateFullyShutdown, s)
}

func TestStateShutdownIdempotent(t *testing.T) {
	s := tlstream.StateOpen
	s.ShutdownWrite()
	s.ShutdownWrite()
	require.Equal(t, tlstream.StateWriteShutdown, s)

	s = tlstream.StateEarlyData
	s.ShutdownRead()
	require.Equal(t, tlstream.StateReadShutdown, s)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "early-data", tlstream.StateEarlyData.String())
	require.Equal(t, "open", tlstream.StateOpen.String())
	require.Equal(t, "read-shutdown", tlstream.StateReadShutdown.String())
	require.Equal(t, "write-shutdown", tlstream.StateWriteShutdown.String())
	require.Equal(t, "fully-shutdown", tlstream.StateFullyShutdown.String())
}
