// Package tlstream 把同步的、面向缓存的 TLS 会话引擎衔接到异步字节流上。
//
// 会话引擎只在内存里工作：它消费与产出密文、明文，从不触网。本包负责
// 在原始端点与会话之间搬运密文，向调用方交付解密后的应用数据，并接收
// 待加密的明文，全程不堵塞调用任务。
//
// 用法：以 Client 或 Server 取得一次性的 Handshaker，其 Handshake 产出
// 就绪的 Connection。上下文需携带 rxp.Executors。
package tlstream

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlstream/transport"
	"github.com/hashicorp/go-hclog"
)

const (
	// maximum plaintext payload length of one record
	maxPlaintext = 16384
)

type Options struct {
	Logger         hclog.Logger
	ReadBufferSize int
}

type Option func(options *Options) error

// WithLogger
// 设置日志器，默认为空日志器。
func WithLogger(logger hclog.Logger) Option {
	return func(options *Options) error {
		if logger == nil {
			return errors.New("tlstream: logger is nil")
		}
		options.Logger = logger
		return nil
	}
}

// WithReadBufferSize
// 设置每轮解密读取的缓存大小，默认为单条记录的明文上限。
func WithReadBufferSize(n int) Option {
	return func(options *Options) error {
		if n < 1 {
			return errors.New("tlstream: read buffer size must be positive")
		}
		options.ReadBufferSize = n
		return nil
	}
}

// Client
// 以客户端身份在端点上构建连接。会话实现 EarlySession 时连接自早发阶段
// 开始，Handshake 立即产出，调用方可在握手完成前写入乐观数据。
func Client(endpoint transport.Connection, session Session, options ...Option) (h *Handshaker, err error) {
	conn, connErr := newConnection(endpoint, session, options)
	if connErr != nil {
		err = connErr
		return
	}
	if _, ok := session.(EarlySession); ok {
		conn.state = StateEarlyData
		conn.early = new(earlyData)
		h = &Handshaker{
			mode: modeEarlyData,
			conn: conn,
		}
		return
	}
	h = &Handshaker{
		mode: modeHandshaking,
		conn: conn,
	}
	return
}

// Server
// 以服务端身份在端点上构建连接。
func Server(endpoint transport.Connection, session Session, options ...Option) (h *Handshaker, err error) {
	conn, connErr := newConnection(endpoint, session, options)
	if connErr != nil {
		err = connErr
		return
	}
	h = &Handshaker{
		mode: modeHandshaking,
		conn: conn,
	}
	return
}

func newConnection(endpoint transport.Connection, session Session, options []Option) (conn *Connection, err error) {
	opt := Options{
		Logger:         hclog.NewNullLogger(),
		ReadBufferSize: maxPlaintext,
	}
	for _, option := range options {
		if err = option(&opt); err != nil {
			return
		}
	}
	conn = &Connection{
		endpoint: endpoint,
		session:  session,
		state:    StateOpen,
		bridge: bridge{
			endpoint: endpoint,
			session:  session,
		},
		inbound:  transport.NewInboundBuffer(),
		readSize: opt.ReadBufferSize,
		logger:   opt.Logger,
	}
	return
}
