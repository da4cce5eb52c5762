package tlstream_test

import (
	"fmt"
	"io"

	"github.com/brickingsoft/tlstream"
	"github.com/brickingsoft/tlstream/pkg/bytebuffers"
)

// 测试用的会话引擎：不做密码学，只做记录分帧与脚本化握手。
// 记录：类型 1 字节 + 长度 2 字节（大端）+ 载荷。
const (
	recHandshake byte = 0x16
	recClose     byte = 0x15
	recData      byte = 0x17
	recEarly     byte = 0x19
)

const recordPayloadLimit = 16384

var (
	_ tlstream.Session      = (*testEngine)(nil)
	_ tlstream.EarlySession = (*testEarlyEngine)(nil)
)

type testEngine struct {
	isClient    bool
	handshaking bool
	acceptEarly bool
	out         bytebuffers.Buffer
	in          bytebuffers.Buffer
	plain       bytebuffers.Buffer
	peerClosed  bool
	closeCalls  int
	chunk       int
}

func newEngine(isClient bool, acceptEarly bool) *testEngine {
	e := &testEngine{
		isClient:    isClient,
		handshaking: true,
		acceptEarly: acceptEarly,
		out:         bytebuffers.NewBuffer(),
		in:          bytebuffers.NewBuffer(),
		plain:       bytebuffers.NewBuffer(),
	}
	if isClient {
		// 客户端先行
		e.frame(recHandshake, []byte("hello"))
	}
	return e
}

func newClientEngine() *testEngine {
	return newEngine(true, false)
}

func newServerEngine(acceptEarly bool) *testEngine {
	return newEngine(false, acceptEarly)
}

func (e *testEngine) frame(typ byte, payload []byte) {
	for {
		chunk := payload
		if len(chunk) > recordPayloadLimit {
			chunk = chunk[:recordPayloadLimit]
		}
		_, _ = e.out.Write([]byte{typ, byte(len(chunk) >> 8), byte(len(chunk))})
		_, _ = e.out.Write(chunk)
		payload = payload[len(chunk):]
		if len(payload) == 0 {
			return
		}
	}
}

func (e *testEngine) Handshaking() bool {
	return e.handshaking
}

func (e *testEngine) WantsWrite() bool {
	return e.out.Len() > 0
}

func (e *testEngine) PendingCiphertext() (p []byte) {
	n := e.out.Len()
	if e.chunk > 0 && n > e.chunk {
		n = e.chunk
	}
	p = e.out.Peek(n)
	return
}

func (e *testEngine) ConsumeCiphertext(n int) {
	e.out.Discard(n)
}

func (e *testEngine) ReadCiphertext(r io.Reader) (n int, err error) {
	p := make([]byte, 4096)
	for {
		rn, rErr := r.Read(p)
		if rn > 0 {
			_, _ = e.in.Write(p[:rn])
			n += rn
		}
		if rErr != nil {
			if rErr == io.EOF {
				return
			}
			err = rErr
			return
		}
	}
}

func (e *testEngine) Process() (err error) {
	for {
		hdr := e.in.Peek(3)
		if len(hdr) < 3 {
			return
		}
		size := int(hdr[1])<<8 | int(hdr[2])
		if e.in.Len() < 3+size {
			return
		}
		typ := hdr[0]
		e.in.Discard(3)
		payload := make([]byte, size)
		if size > 0 {
			_, _ = e.in.Read(payload)
		}
		switch typ {
		case recHandshake:
			if e.handshaking {
				if !e.isClient {
					e.frame(recHandshake, []byte("hello-back"))
				}
				e.handshaking = false
			}
		case recData:
			_, _ = e.plain.Write(payload)
		case recEarly:
			if e.acceptEarly {
				_, _ = e.plain.Write(payload)
			}
		case recClose:
			e.peerClosed = true
		default:
			err = fmt.Errorf("unknown record type %#x", typ)
			return
		}
	}
}

func (e *testEngine) ReadPlaintext(p []byte) (n int, err error) {
	if e.plain.Len() == 0 {
		if e.peerClosed {
			err = io.EOF
		}
		return
	}
	n, err = e.plain.Read(p)
	return
}

func (e *testEngine) WritePlaintext(p []byte) (n int, err error) {
	if e.closeCalls > 0 {
		err = fmt.Errorf("write after close notify")
		return
	}
	e.frame(recData, p)
	n = len(p)
	return
}

func (e *testEngine) QueueCloseNotify() {
	e.closeCalls++
	if e.closeCalls == 1 {
		e.frame(recClose, nil)
	}
}

type testEarlyEngine struct {
	*testEngine
	open     bool
	accepted bool
}

func newEarlyClientEngine(accepted bool) *testEarlyEngine {
	return &testEarlyEngine{
		testEngine: newClientEngine(),
		open:       true,
		accepted:   accepted,
	}
}

func (e *testEarlyEngine) EarlyWriter() (w io.Writer, ok bool) {
	if !e.open {
		return
	}
	w = earlyWriter{e.testEngine}
	ok = true
	return
}

func (e *testEarlyEngine) EarlyDataAccepted() bool {
	return e.accepted
}

func (e *testEarlyEngine) stopEarly() {
	e.open = false
}

type earlyWriter struct {
	e *testEngine
}

func (w earlyWriter) Write(p []byte) (n int, err error) {
	w.e.frame(recEarly, p)
	n = len(p)
	return
}
