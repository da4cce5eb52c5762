package tlstream

import (
	"context"
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp/async"
)

type handshakeMode int

const (
	modeHandshaking handshakeMode = iota
	modeEarlyData
	modeSpent
)

// Handshaker
// 一次性的握手驱动器：反复驱动衔接轮直至会话完成握手且无待发密文，
// 然后产出就绪的连接，有且只有一次。产出后再次调用是调用方缺陷，
// 以 ErrHandshakeSpent 确定性失败，绝不产出第二个连接。
type Handshaker struct {
	mode handshakeMode
	conn *Connection
}

func (h *Handshaker) Handshake() (future async.Future[*Connection]) {
	switch h.mode {
	case modeSpent:
		ctx := context.Background()
		if h.conn != nil {
			ctx = h.conn.Context()
		}
		future = async.FailedImmediately[*Connection](ctx, ErrHandshakeSpent)
		return
	case modeEarlyData:
		// 早发模式下连接立即可用，握手随首次读写一并完成。
		conn := h.yield()
		future = async.SucceedImmediately[*Connection](conn.Context(), conn)
		return
	default:
		conn := h.conn
		ctx := conn.Context()
		promise, promiseErr := async.Make[*Connection](ctx, async.WithWait())
		if promiseErr != nil {
			future = async.FailedImmediately[*Connection](ctx, promiseErr)
			return
		}
		h.step(ctx, promise)
		future = promise.Future()
		return
	}
}

func (h *Handshaker) step(ctx context.Context, promise async.Promise[*Connection]) {
	conn := h.conn
	if conn.session.Handshaking() {
		if conn.bridge.eof {
			h.spend()
			promise.Fail(errors.New(
				"handshake failed",
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpHandshake),
				errors.WithWrap(io.ErrUnexpectedEOF),
			))
			return
		}
		conn.bridge.complete(ctx).OnComplete(func(_ context.Context, _ ioRound, cause error) {
			if cause != nil {
				h.spend()
				promise.Fail(cause)
				return
			}
			h.step(ctx, promise)
		})
		return
	}
	conn.bridge.drainOut(ctx).OnComplete(func(_ context.Context, _ int, cause error) {
		if cause != nil {
			h.spend()
			promise.Fail(cause)
			return
		}
		ready := h.yield()
		ready.logger.Debug("handshake complete")
		promise.Succeed(ready)
	})
}

func (h *Handshaker) yield() (conn *Connection) {
	conn = h.conn
	h.conn = nil
	h.mode = modeSpent
	return
}

func (h *Handshaker) spend() {
	h.conn = nil
	h.mode = modeSpent
}
