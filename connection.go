package tlstream

import (
	"context"
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/tlstream/transport"
	"github.com/hashicorp/go-hclog"
)

// Connection
// 就绪的安全连接：独占底层端点与会话，在两者之间搬运明文与密文。
// 实现 transport.Connection，读到的是解密后的应用数据，写入的明文在
// 会话中加密后送往端点。单任务驱动，无内部锁。
type Connection struct {
	endpoint transport.Connection
	session  Session
	state    State
	bridge   bridge
	early    *earlyData
	inbound  transport.InboundBuffer
	readSize int
	logger   hclog.Logger
	consumed bool
}

func (conn *Connection) Context() (ctx context.Context) {
	ctx = conn.endpoint.Context()
	return
}

// State
// 当前连接状态，用于诊断。
func (conn *Connection) State() State {
	return conn.state
}

// Endpoint
// 借出底层端点。
func (conn *Connection) Endpoint() transport.Connection {
	return conn.endpoint
}

// Session
// 借出会话。
func (conn *Connection) Session() Session {
	return conn.session
}

// Into
// 取回端点与会话的所有权，例如协议升级。此后连接不可再使用。
func (conn *Connection) Into() (endpoint transport.Connection, session Session) {
	conn.consumed = true
	endpoint = conn.endpoint
	session = conn.session
	return
}

func (conn *Connection) Read() (future async.Future[transport.Inbound]) {
	ctx := conn.Context()
	if conn.consumed {
		future = async.FailedImmediately[transport.Inbound](ctx, ErrConnectionConsumed)
		return
	}
	switch conn.state {
	case StateEarlyData:
		promise, promiseErr := async.Make[transport.Inbound](ctx, async.WithWait())
		if promiseErr != nil {
			future = async.FailedImmediately[transport.Inbound](ctx, promiseErr)
			return
		}
		conn.resolveEarly(ctx, func(cause error) {
			if cause != nil {
				promise.Fail(cause)
				return
			}
			conn.read(ctx, promise)
		})
		future = promise.Future()
		return
	case StateReadShutdown, StateFullyShutdown:
		future = async.SucceedImmediately[transport.Inbound](ctx, transport.NewInbound(nil, 0))
		return
	default:
		promise, promiseErr := async.Make[transport.Inbound](ctx, async.WithWait())
		if promiseErr != nil {
			future = async.FailedImmediately[transport.Inbound](ctx, promiseErr)
			return
		}
		conn.read(ctx, promise)
		future = promise.Future()
		return
	}
}

// read
// 先取会话中已解密的明文；没有则驱动一轮衔接后重试。
// 零明文且流已结束视作干净的流终止；对端异常中断按流终止处理，
// 若写半边尚开则补一次关闭通知。
func (conn *Connection) read(ctx context.Context, promise async.Promise[transport.Inbound]) {
	p, allocErr := conn.inbound.Allocate(conn.readSize)
	if allocErr != nil {
		promise.Fail(allocErr)
		return
	}
	n, rErr := conn.session.ReadPlaintext(p)
	_ = conn.inbound.AllocatedWrote(n)
	if rErr != nil && rErr != io.EOF {
		promise.Fail(errors.New(
			"read plaintext failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRead),
			errors.WithWrap(rErr),
		))
		return
	}
	if n > 0 {
		promise.Succeed(transport.NewInbound(conn.inbound, n))
		return
	}
	if rErr == io.EOF || conn.bridge.eof {
		conn.shutdownRead()
		promise.Succeed(transport.NewInbound(nil, 0))
		return
	}
	conn.bridge.complete(ctx).OnComplete(func(_ context.Context, _ ioRound, cause error) {
		if cause != nil {
			if transport.IsAborted(cause) {
				conn.shutdownRead()
				if conn.state.Writable() {
					conn.session.QueueCloseNotify()
					conn.shutdownWrite()
				}
				promise.Succeed(transport.NewInbound(nil, 0))
				return
			}
			promise.Fail(cause)
			return
		}
		conn.read(ctx, promise)
	})
}

func (conn *Connection) Write(b []byte) (future async.Future[int]) {
	ctx := conn.Context()
	if conn.consumed {
		future = async.FailedImmediately[int](ctx, ErrConnectionConsumed)
		return
	}
	if len(b) == 0 {
		future = async.SucceedImmediately[int](ctx, 0)
		return
	}
	if conn.state == StateEarlyData {
		early := conn.session.(EarlySession)
		if w, ok := early.EarlyWriter(); ok {
			n, wErr := w.Write(b)
			if wErr != nil {
				future = async.FailedImmediately[int](ctx, errors.New(
					"write early data failed",
					errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
					errors.WithMeta(errMetaOpKey, errMetaOpWrite),
					errors.WithWrap(wErr),
				))
				return
			}
			conn.early.mirror(b[:n])
			future = async.SucceedImmediately[int](ctx, n)
			return
		}
		promise, promiseErr := async.Make[int](ctx, async.WithWait())
		if promiseErr != nil {
			future = async.FailedImmediately[int](ctx, promiseErr)
			return
		}
		conn.resolveEarly(ctx, func(cause error) {
			if cause != nil {
				promise.Fail(cause)
				return
			}
			conn.write(ctx, promise, b)
		})
		future = promise.Future()
		return
	}
	if !conn.state.Writable() {
		future = async.FailedImmediately[int](ctx, ErrClosed)
		return
	}
	promise, promiseErr := async.Make[int](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[int](ctx, promiseErr)
		return
	}
	conn.write(ctx, promise, b)
	future = promise.Future()
	return
}

// write
// 把明文交给会话加密并排空产生的密文。会话接受多少就报告多少，
// 部分写合法，余量由调用方重试。
func (conn *Connection) write(ctx context.Context, promise async.Promise[int], b []byte) {
	n, wErr := conn.session.WritePlaintext(b)
	if wErr != nil {
		promise.Fail(errors.New(
			"write plaintext failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWrite),
			errors.WithWrap(wErr),
		))
		return
	}
	conn.bridge.drainOut(ctx).OnComplete(func(_ context.Context, _ int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		promise.Succeed(n)
	})
}

// resolveEarly
// 走出早发阶段：先完成握手；若对端未接受早发数据，则把镜像的明文按
// 游标经普通写路径重放；随后清空缓存并进入 Open。整个过程只发生一次。
func (conn *Connection) resolveEarly(ctx context.Context, done func(cause error)) {
	if conn.session.Handshaking() {
		if conn.bridge.eof {
			done(errors.New(
				"handshake failed",
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpHandshake),
				errors.WithWrap(io.ErrUnexpectedEOF),
			))
			return
		}
		conn.bridge.complete(ctx).OnComplete(func(_ context.Context, _ ioRound, cause error) {
			if cause != nil {
				done(cause)
				return
			}
			conn.resolveEarly(ctx, done)
		})
		return
	}
	early := conn.session.(EarlySession)
	if !early.EarlyDataAccepted() {
		conn.logger.Debug("early data rejected, replaying", "bytes", len(conn.early.pending()))
		conn.replayEarly(ctx, done)
		return
	}
	conn.finishEarly(done)
}

func (conn *Connection) replayEarly(ctx context.Context, done func(cause error)) {
	pending := conn.early.pending()
	if len(pending) == 0 {
		conn.finishEarly(done)
		return
	}
	n, wErr := conn.session.WritePlaintext(pending)
	if wErr != nil {
		done(errors.New(
			"replay early data failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWrite),
			errors.WithWrap(wErr),
		))
		return
	}
	conn.early.advance(n)
	conn.bridge.drainOut(ctx).OnComplete(func(_ context.Context, _ int, cause error) {
		if cause != nil {
			done(cause)
			return
		}
		conn.replayEarly(ctx, done)
	})
}

func (conn *Connection) finishEarly(done func(cause error)) {
	conn.early.clear()
	if conn.state == StateEarlyData {
		conn.state = StateOpen
	}
	conn.logger.Trace("left early data phase", "state", conn.state)
	done(nil)
}

// Flush
// 排空会话中所有待发密文后刷新端点。
func (conn *Connection) Flush() (future async.Future[async.Void]) {
	ctx := conn.Context()
	if conn.consumed {
		future = async.FailedImmediately[async.Void](ctx, ErrConnectionConsumed)
		return
	}
	promise, promiseErr := async.Make[async.Void](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[async.Void](ctx, promiseErr)
		return
	}
	conn.bridge.drainOut(ctx).OnComplete(func(_ context.Context, _ int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		conn.endpoint.Flush().OnComplete(func(_ context.Context, _ async.Void, cause error) {
			if cause != nil {
				promise.Fail(cause)
				return
			}
			promise.Succeed(async.Void{})
		})
	})
	future = promise.Future()
	return
}

// CloseWrite
// 半关闭：写半边尚开则让会话排入关闭通知并关闭写半边，再排空刷新。
// 端点保持可读。
func (conn *Connection) CloseWrite() (future async.Future[async.Void]) {
	ctx := conn.Context()
	if conn.consumed {
		future = async.FailedImmediately[async.Void](ctx, ErrConnectionConsumed)
		return
	}
	if conn.state.Writable() {
		conn.session.QueueCloseNotify()
		conn.shutdownWrite()
	}
	future = conn.Flush()
	return
}

// Close
// 终结关闭：排入关闭通知（如写半边尚开）、排空待发密文、关闭端点。
// 对调用方幂等，重复关闭不会重发关闭通知。
func (conn *Connection) Close() (future async.Future[async.Void]) {
	ctx := conn.Context()
	if conn.consumed {
		future = async.FailedImmediately[async.Void](ctx, ErrConnectionConsumed)
		return
	}
	if conn.state.Writable() {
		conn.session.QueueCloseNotify()
		conn.shutdownWrite()
	}
	promise, promiseErr := async.Make[async.Void](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[async.Void](ctx, promiseErr)
		return
	}
	conn.bridge.drainOut(ctx).OnComplete(func(_ context.Context, _ int, cause error) {
		if cause != nil && !transport.IsAborted(cause) && !transport.IsClosed(cause) {
			promise.Fail(cause)
			return
		}
		conn.endpoint.Close().OnComplete(func(_ context.Context, _ async.Void, cause error) {
			if cause != nil {
				promise.Fail(cause)
				return
			}
			promise.Succeed(async.Void{})
		})
	})
	future = promise.Future()
	return
}

func (conn *Connection) shutdownRead() {
	conn.state.ShutdownRead()
	conn.bridge.eof = true
	conn.logger.Trace("read half closed", "state", conn.state)
}

func (conn *Connection) shutdownWrite() {
	conn.state.ShutdownWrite()
	conn.logger.Trace("write half closed", "state", conn.state)
}
