package tlstream

// earlyData mirrors plaintext handed to the session's optimistic channel so
// it can be replayed through the ordinary write path if the peer rejects the
// early-data offer. pos tracks how much of a replay has already been flushed.
type earlyData struct {
	pos  int
	data []byte
}

func (ed *earlyData) mirror(p []byte) {
	ed.data = append(ed.data, p...)
}

func (ed *earlyData) pending() (p []byte) {
	p = ed.data[ed.pos:]
	return
}

func (ed *earlyData) advance(n int) {
	ed.pos += n
}

// clear releases the buffer. Called exactly once, when the connection leaves
// the early-data phase; the buffer is never read afterwards.
func (ed *earlyData) clear() {
	ed.pos = 0
	ed.data = nil
}
