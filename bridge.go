package tlstream

import (
	"context"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/tlstream/transport"
)

// ioRound
// 一轮衔接的结果：本轮读入与写出的密文字节数。
type ioRound struct {
	rd int
	wr int
}

// bridge
// 端点与会话之间唯一允许交替进行 I/O 与状态推进的通道。
// 部分写的游标记录只存在于这里。
type bridge struct {
	endpoint transport.Connection
	session  Session
	eof      bool
}

// complete
// 完整的一轮衔接：排空会话待发密文，然后读入一段密文并交由会话处理。
// 读到 0 字节时置 eof 供后续轮次使用，本身不是错误。
func (b *bridge) complete(ctx context.Context) (future async.Future[ioRound]) {
	promise, promiseErr := async.Make[ioRound](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[ioRound](ctx, promiseErr)
		return
	}
	b.drain(ctx, 0, func(wr int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		if b.eof {
			promise.Succeed(ioRound{rd: 0, wr: wr})
			return
		}
		b.endpoint.Read().OnComplete(func(_ context.Context, in transport.Inbound, cause error) {
			if cause != nil {
				promise.Fail(cause)
				return
			}
			rd := in.Received()
			if rd == 0 {
				b.eof = true
				promise.Succeed(ioRound{rd: 0, wr: wr})
				return
			}
			if _, rErr := b.session.ReadCiphertext(in.Reader()); rErr != nil {
				promise.Fail(errors.New(
					"read ciphertext failed",
					errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
					errors.WithMeta(errMetaOpKey, errMetaOpRead),
					errors.WithWrap(rErr),
				))
				return
			}
			if pErr := b.session.Process(); pErr != nil {
				promise.Fail(errors.New(
					"process ciphertext failed",
					errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
					errors.WithMeta(errMetaOpKey, errMetaOpProcess),
					errors.WithWrap(errors.Join(ErrInvalidData, pErr)),
				))
				return
			}
			promise.Succeed(ioRound{rd: rd, wr: wr})
		})
	})
	future = promise.Future()
	return
}

// drainOut
// 只排空会话待发密文，不读入。完成值为写出的字节数。
func (b *bridge) drainOut(ctx context.Context) (future async.Future[int]) {
	promise, promiseErr := async.Make[int](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[int](ctx, promiseErr)
		return
	}
	b.drain(ctx, 0, func(wr int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		promise.Succeed(wr)
	})
	future = promise.Future()
	return
}

// drain
// 循环写出直至会话无待发密文。端点接受多少字节，会话游标就推进多少，
// 已推入端点的字节不会重发。
func (b *bridge) drain(ctx context.Context, wr int, done func(wr int, cause error)) {
	if !b.session.WantsWrite() {
		done(wr, nil)
		return
	}
	chunk := b.session.PendingCiphertext()
	if len(chunk) == 0 {
		done(wr, nil)
		return
	}
	b.endpoint.Write(chunk).OnComplete(func(_ context.Context, n int, cause error) {
		if cause != nil {
			done(wr, cause)
			return
		}
		b.session.ConsumeCiphertext(n)
		b.drain(ctx, wr+n, done)
	})
}
