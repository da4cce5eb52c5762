package bytebuffers

import (
	"errors"
	"io"
	"math"
	"os"
)

// Buffer
// 可增长的读写字节缓存。
//
// 读游标与写游标分离，支持先 Allocate 一片可写区域，
// 待外部写完后调用 AllocatedWrote 来推进写游标。
type Buffer interface {
	Len() (n int)
	Cap() (n int)
	Peek(n int) (p []byte)
	Discard(n int)
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Allocate(size int) (p []byte, err error)
	AllocatedWrote(n int) (err error)
	WritePending() bool
	Reset()
}

var (
	pagesize = os.Getpagesize()
)

var (
	ErrTooLarge                  = errors.New("bytebuffers: too large")
	ErrWriteBeforeAllocatedWrote = errors.New("bytebuffers: cannot write before AllocatedWrote(), prev Allocate() was not finished")
	ErrAllocateZero              = errors.New("bytebuffers: cannot allocate zero")
)

func NewBuffer() Buffer {
	return NewBufferWithSize(1)
}

func NewBufferWithSize(size int) Buffer {
	if size <= 0 {
		size = 1
	}
	b := &buffer{}
	_ = b.grow(size)
	return b
}

type buffer struct {
	b []byte
	r int
	w int
	a int
}

func (buf *buffer) Len() int { return buf.w - buf.r }

func (buf *buffer) Cap() int { return cap(buf.b) }

func (buf *buffer) Peek(n int) (p []byte) {
	bLen := buf.Len()
	if n < 1 || bLen == 0 {
		return
	}
	if bLen > n {
		p = buf.b[buf.r : buf.r+n]
		return
	}
	p = buf.b[buf.r:buf.w]
	return
}

func (buf *buffer) Discard(n int) {
	if n < 1 {
		return
	}
	bLen := buf.Len()
	if bLen <= n {
		n = bLen
	}
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Read(p []byte) (n int, err error) {
	if buf.Len() == 0 {
		if !buf.WritePending() {
			buf.Reset()
		}
		err = io.EOF
		return
	}
	if len(p) == 0 {
		return
	}
	n = copy(p, buf.b[buf.r:buf.w])
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Write(p []byte) (n int, err error) {
	if buf.WritePending() {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	pLen := len(p)
	if pLen == 0 {
		return
	}
	if m := buf.w + pLen - buf.Cap(); m > 0 {
		if err = buf.grow(m); err != nil {
			return
		}
	}
	n = copy(buf.b[buf.w:], p)
	buf.w += n
	buf.a = buf.w
	return
}

func (buf *buffer) WritePending() bool {
	return buf.a != buf.w
}

func (buf *buffer) Allocate(size int) (p []byte, err error) {
	if buf.WritePending() {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if size < 1 {
		err = ErrAllocateZero
		return
	}
	if m := buf.w + size - buf.Cap(); m > 0 {
		if err = buf.grow(m); err != nil {
			return
		}
	}
	buf.a += size
	p = buf.b[buf.w : buf.w+size]
	return
}

func (buf *buffer) AllocatedWrote(n int) (err error) {
	if buf.a == buf.w {
		return
	}
	if n == 0 {
		buf.a = buf.w
	} else {
		buf.w += n
		buf.a = buf.w
	}
	return
}

func (buf *buffer) Reset() {
	buf.r = 0
	buf.w = 0
	buf.a = 0
}

func (buf *buffer) tryReset() {
	if buf.r == buf.w && buf.a == buf.w {
		buf.Reset()
	}
}

func (buf *buffer) grow(n int) (err error) {
	if n < 1 {
		return
	}
	defer func() {
		if recover() != nil {
			err = ErrTooLarge
		}
	}()
	adjusted := int(math.Ceil(float64(n)/float64(pagesize)) * float64(pagesize))
	buf.b = append(buf.b, make([]byte, adjusted)...)
	return
}
