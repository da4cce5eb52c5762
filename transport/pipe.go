package transport

import (
	"context"
	"sync"

	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/tlstream/pkg/bytebuffers"
)

// PipeConn
// 管道端点，除 Connection 外还支持模拟对端异常中断。
type PipeConn interface {
	Connection
	// CloseAbrupt
	// 双向中断，等同连接被 reset：对端未决或后续的读写以 ErrAborted 失败。
	CloseAbrupt()
}

type PipeOption func(opt *pipeOptions)

// WithWriteCap
// 限制每次 Write 实际接受的字节数上限，用于构造部分写。
func WithWriteCap(n int) PipeOption {
	return func(opt *pipeOptions) {
		if n > 0 {
			opt.writeCap = n
		}
	}
}

type pipeOptions struct {
	writeCap int
}

// Pipe
// 一对内存互联端点。ctx 需携带 rxp.Executors。
func Pipe(ctx context.Context, options ...PipeOption) (PipeConn, PipeConn) {
	opt := pipeOptions{}
	for _, option := range options {
		option(&opt)
	}
	ab := newPipeHalf()
	ba := newPipeHalf()
	a := &pipeConn{
		ctx:      ctx,
		rd:       ba,
		wr:       ab,
		inbound:  NewInboundBuffer(),
		writeCap: opt.writeCap,
	}
	b := &pipeConn{
		ctx:      ctx,
		rd:       ab,
		wr:       ba,
		inbound:  NewInboundBuffer(),
		writeCap: opt.writeCap,
	}
	return a, b
}

func newPipeHalf() *pipeHalf {
	return &pipeHalf{
		buf: bytebuffers.NewBuffer(),
	}
}

// pipeHalf
// 单向字节流：一端写入，另一端读取。
type pipeHalf struct {
	mu      sync.Mutex
	buf     bytebuffers.Buffer
	closed  bool
	aborted bool
	waiter  func()
}

func (half *pipeHalf) wake() (w func()) {
	w = half.waiter
	half.waiter = nil
	return
}

type pipeConn struct {
	ctx      context.Context
	rd       *pipeHalf
	wr       *pipeHalf
	inbound  InboundBuffer
	writeCap int
}

func (conn *pipeConn) Context() (ctx context.Context) {
	ctx = conn.ctx
	return
}

func (conn *pipeConn) Read() (future async.Future[Inbound]) {
	ctx := conn.ctx
	conn.rd.mu.Lock()
	if conn.rd.aborted {
		conn.rd.mu.Unlock()
		future = async.FailedImmediately[Inbound](ctx, ErrAborted)
		return
	}
	if conn.rd.buf.Len() > 0 {
		in := conn.fillInboundLocked()
		conn.rd.mu.Unlock()
		future = async.SucceedImmediately[Inbound](ctx, in)
		return
	}
	if conn.rd.closed {
		conn.rd.mu.Unlock()
		future = async.SucceedImmediately[Inbound](ctx, NewInbound(nil, 0))
		return
	}
	promise, promiseErr := async.Make[Inbound](ctx, async.WithWait())
	if promiseErr != nil {
		conn.rd.mu.Unlock()
		future = async.FailedImmediately[Inbound](ctx, promiseErr)
		return
	}
	var resume func()
	resume = func() {
		conn.rd.mu.Lock()
		switch {
		case conn.rd.aborted:
			conn.rd.mu.Unlock()
			promise.Fail(ErrAborted)
		case conn.rd.buf.Len() > 0:
			in := conn.fillInboundLocked()
			conn.rd.mu.Unlock()
			promise.Succeed(in)
		case conn.rd.closed:
			conn.rd.mu.Unlock()
			promise.Succeed(NewInbound(nil, 0))
		default:
			conn.rd.waiter = resume
			conn.rd.mu.Unlock()
		}
	}
	conn.rd.waiter = resume
	conn.rd.mu.Unlock()
	future = promise.Future()
	return
}

// fillInboundLocked
// 把对向缓存搬入本端 inbound，持 rd.mu 调用。
func (conn *pipeConn) fillInboundLocked() (in Inbound) {
	n := conn.rd.buf.Len()
	p := conn.rd.buf.Peek(n)
	wn, _ := conn.inbound.Write(p)
	conn.rd.buf.Discard(wn)
	in = NewInbound(conn.inbound, wn)
	return
}

func (conn *pipeConn) Write(b []byte) (future async.Future[int]) {
	ctx := conn.ctx
	if len(b) == 0 {
		future = async.SucceedImmediately[int](ctx, 0)
		return
	}
	conn.wr.mu.Lock()
	if conn.wr.aborted {
		conn.wr.mu.Unlock()
		future = async.FailedImmediately[int](ctx, ErrAborted)
		return
	}
	if conn.wr.closed {
		conn.wr.mu.Unlock()
		future = async.FailedImmediately[int](ctx, ErrClosed)
		return
	}
	n := len(b)
	if conn.writeCap > 0 && n > conn.writeCap {
		n = conn.writeCap
	}
	wn, wErr := conn.wr.buf.Write(b[:n])
	if wErr != nil {
		conn.wr.mu.Unlock()
		future = async.FailedImmediately[int](ctx, wErr)
		return
	}
	w := conn.wr.wake()
	conn.wr.mu.Unlock()
	if w != nil {
		w()
	}
	future = async.SucceedImmediately[int](ctx, wn)
	return
}

func (conn *pipeConn) Flush() (future async.Future[async.Void]) {
	future = async.SucceedImmediately[async.Void](conn.ctx, async.Void{})
	return
}

func (conn *pipeConn) Close() (future async.Future[async.Void]) {
	conn.wr.mu.Lock()
	conn.wr.closed = true
	w := conn.wr.wake()
	conn.wr.mu.Unlock()
	if w != nil {
		w()
	}
	conn.rd.mu.Lock()
	conn.rd.closed = true
	r := conn.rd.wake()
	conn.rd.mu.Unlock()
	if r != nil {
		r()
	}
	future = async.SucceedImmediately[async.Void](conn.ctx, async.Void{})
	return
}

func (conn *pipeConn) CloseAbrupt() {
	conn.wr.mu.Lock()
	conn.wr.aborted = true
	w := conn.wr.wake()
	conn.wr.mu.Unlock()
	if w != nil {
		w()
	}
	conn.rd.mu.Lock()
	conn.rd.aborted = true
	r := conn.rd.wake()
	conn.rd.mu.Unlock()
	if r != nil {
		r()
	}
	return
}
