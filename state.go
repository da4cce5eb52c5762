package tlstream

// State records which halves of the duplex connection are still open and
// whether the connection is in the early-data phase. Transitions only move
// forward: a closed half never reopens and StateEarlyData is never
// re-entered.
type State int

const (
	StateEarlyData State = iota
	StateOpen
	StateReadShutdown
	StateWriteShutdown
	StateFullyShutdown
)

func (s State) String() string {
	switch s {
	case StateEarlyData:
		return "early-data"
	case StateOpen:
		return "open"
	case StateReadShutdown:
		return "read-shutdown"
	case StateWriteShutdown:
		return "write-shutdown"
	case StateFullyShutdown:
		return "fully-shutdown"
	default:
		return "invalid"
	}
}

func (s State) Readable() bool {
	return s != StateReadShutdown && s != StateFullyShutdown
}

func (s State) Writable() bool {
	return s != StateWriteShutdown && s != StateFullyShutdown
}

// ShutdownRead closes the read half. Idempotent.
func (s *State) ShutdownRead() {
	switch *s {
	case StateEarlyData, StateOpen:
		*s = StateReadShutdown
	case StateWriteShutdown:
		*s = StateFullyShutdown
	}
}

// ShutdownWrite closes the write half. Idempotent.
func (s *State) ShutdownWrite() {
	switch *s {
	case StateEarlyData, StateOpen:
		*s = StateWriteShutdown
	case StateReadShutdown:
		*s = StateFullyShutdown
	}
}
