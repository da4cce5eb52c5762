package tlstream

import (
	"github.com/brickingsoft/errors"
)

var (
	// ErrClosed
	// 写方向已关闭后继续写入。
	ErrClosed = errors.Define("tlstream: connection closed")
	// ErrInvalidData
	// 会话引擎报告收到畸形的握手或记录数据，连接不可继续使用。
	ErrInvalidData = errors.Define("tlstream: invalid data")
	// ErrHandshakeSpent
	// 握手驱动器是一次性的，产出连接后再次调用属于调用方缺陷。
	ErrHandshakeSpent = errors.Define("tlstream: handshake already yielded its connection")
	// ErrConnectionConsumed
	// Into 取回端点与会话后继续使用连接。
	ErrConnectionConsumed = errors.Define("tlstream: connection consumed")
)

func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

func IsHandshakeSpent(err error) bool {
	return errors.Is(err, ErrHandshakeSpent)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "tlstream"
)

const (
	errMetaOpKey       = "op"
	errMetaOpRead      = "read"
	errMetaOpWrite     = "write"
	errMetaOpProcess   = "process"
	errMetaOpHandshake = "handshake"
)
