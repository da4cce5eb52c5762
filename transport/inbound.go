package transport

import (
	"io"
	"sync"

	"github.com/brickingsoft/tlstream/pkg/bytebuffers"
)

type InboundReader interface {
	Peek(n int) (p []byte)
	Read(p []byte) (n int, err error)
	Discard(n int)
	Length() (n int)
}

type InboundBuffer interface {
	InboundReader
	Allocate(size int) (p []byte, err error)
	AllocatedWrote(n int) (err error)
	Write(p []byte) (n int, err error)
	Close()
}

func NewInboundBuffer() InboundBuffer {
	return new(inboundBuffer)
}

var inboundBufferPool = sync.Pool{
	New: func() interface{} {
		return bytebuffers.NewBuffer()
	},
}

type inboundBuffer struct {
	b bytebuffers.Buffer
}

func (buf *inboundBuffer) Allocate(size int) (p []byte, err error) {
	if buf.b == nil {
		buf.b = inboundBufferPool.Get().(bytebuffers.Buffer)
	}
	p, err = buf.b.Allocate(size)
	return
}

func (buf *inboundBuffer) AllocatedWrote(n int) (err error) {
	if buf.b != nil {
		err = buf.b.AllocatedWrote(n)
	}
	return
}

func (buf *inboundBuffer) Write(p []byte) (n int, err error) {
	if buf.b == nil {
		buf.b = inboundBufferPool.Get().(bytebuffers.Buffer)
	}
	n, err = buf.b.Write(p)
	return
}

func (buf *inboundBuffer) Close() {
	if buf.b != nil {
		if buf.b.WritePending() {
			_ = buf.b.AllocatedWrote(0)
		}
		buf.b.Reset()
		inboundBufferPool.Put(buf.b)
		buf.b = nil
	}
}

func (buf *inboundBuffer) Peek(n int) (p []byte) {
	if buf.b == nil {
		return
	}
	p = buf.b.Peek(n)
	return
}

func (buf *inboundBuffer) Read(p []byte) (n int, err error) {
	if buf.b == nil {
		err = io.EOF
		return
	}
	n, err = buf.b.Read(p)
	return
}

func (buf *inboundBuffer) Discard(n int) {
	if buf.b == nil {
		return
	}
	buf.b.Discard(n)
	return
}

func (buf *inboundBuffer) Length() (n int) {
	if buf.b == nil {
		return
	}
	n = buf.b.Len()
	return
}

// Inbound
// 一次读取的结果：本轮收到的字节数与可读缓存。
// 关闭时 Received 为 0 且 Reader 为空。
type Inbound interface {
	Reader() (buf InboundReader)
	Received() (n int)
}

func NewInbound(r InboundReader, n int) Inbound {
	return inbound{
		r: r,
		n: n,
	}
}

type inbound struct {
	r InboundReader
	n int
}

func (in inbound) Reader() (r InboundReader) {
	r = in.r
	return
}

func (in inbound) Received() (n int) {
	n = in.n
	return
}
