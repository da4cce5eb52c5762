package tlstream

import (
	"io"
)

// Session is a synchronous, buffer oriented TLS engine. It never touches the
// network: ciphertext moves in and out through PendingCiphertext,
// ConsumeCiphertext and ReadCiphertext, plaintext through ReadPlaintext and
// WritePlaintext, and all protocol progress happens inside Process.
//
// A Session is exclusively owned by one Connection and is never called
// concurrently.
type Session interface {
	// Handshaking reports whether the handshake is still in progress.
	Handshaking() bool

	// WantsWrite reports whether the session holds ciphertext that must be
	// sent to the peer before further progress is useful.
	WantsWrite() bool

	// PendingCiphertext returns a view of the next pending ciphertext chunk.
	// The view stays valid until ConsumeCiphertext is called.
	PendingCiphertext() (p []byte)

	// ConsumeCiphertext advances the outgoing cursor by the number of bytes
	// the endpoint actually accepted. Partially accepted chunks are never
	// handed out again.
	ConsumeCiphertext(n int)

	// ReadCiphertext absorbs ciphertext read from the wire. r is drained
	// until it reports io.EOF.
	ReadCiphertext(r io.Reader) (n int, err error)

	// Process consumes buffered ciphertext: it advances the handshake and
	// decrypts application data. Malformed input yields a protocol error,
	// which is fatal to the connection.
	Process() (err error)

	// ReadPlaintext copies decrypted application data into p. It returns
	// (0, io.EOF) once the peer has closed cleanly and no data remains, and
	// (0, nil) when nothing is available yet.
	ReadPlaintext(p []byte) (n int, err error)

	// WritePlaintext queues plaintext for encryption and returns the number
	// of bytes accepted, which may be fewer than len(p) under backpressure.
	WritePlaintext(p []byte) (n int, err error)

	// QueueCloseNotify queues the closing notification. The connection calls
	// it at most once.
	QueueCloseNotify()
}

// EarlySession is implemented by sessions that support an optimistic
// early-data channel. Client connections built over such a session start in
// the early-data phase.
type EarlySession interface {
	Session

	// EarlyWriter returns the optimistic plaintext channel while the session
	// still accepts early data, ok is false once it no longer does.
	EarlyWriter() (w io.Writer, ok bool)

	// EarlyDataAccepted reports the peer's acceptance decision. It is
	// meaningful once the handshake has completed.
	EarlyDataAccepted() bool
}
