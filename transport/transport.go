package transport

import (
	"context"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp/async"
)

var (
	// ErrClosed
	// 连接已正常关闭。
	ErrClosed = errors.Define("transport: use of closed connection")
	// ErrAborted
	// 连接被对端异常中断（reset / abort 一类）。
	ErrAborted = errors.Define("transport: connection aborted")
)

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

type Reader interface {
	// Read
	// 读取一段字节。
	// 无数据时未来不完成，直到对端写入、正常关闭（Received 为 0）或异常中断（ErrAborted）。
	Read() (future async.Future[Inbound])
}

type Writer interface {
	// Write
	// 写入一段字节，完成值为实际接受的字节数，可能小于 len(b)。
	Write(b []byte) (future async.Future[int])
}

type Flusher interface {
	Flush() (future async.Future[async.Void])
}

type Closer interface {
	// Close
	// 幂等关闭。
	Close() (future async.Future[async.Void])
}

// Connection
// 异步字节流端点。
type Connection interface {
	Context() (ctx context.Context)
	Reader
	Writer
	Flusher
	Closer
}
