package transport

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/brickingsoft/rxp/async"
)

// AdaptToNetConn
// 以堵塞的 net.Conn 视角使用异步连接。
// 仅适用于愿意同步等待未来结果的调用方。
func AdaptToNetConn(conn Connection) net.Conn {
	return &netConn{conn}
}

type netConn struct {
	inner Connection
}

func (conn *netConn) Read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return
	}
	af := async.AwaitableFuture(conn.inner.Read())
	inbound, rErr := af.Await()
	if rErr != nil {
		err = rErr
		return
	}
	if inbound.Received() == 0 {
		err = io.EOF
		return
	}
	n, err = inbound.Reader().Read(b)
	return
}

func (conn *netConn) Write(b []byte) (n int, err error) {
	for n < len(b) {
		af := async.AwaitableFuture(conn.inner.Write(b[n:]))
		wn, wErr := af.Await()
		if wErr != nil {
			err = wErr
			return
		}
		n += wn
	}
	return
}

func (conn *netConn) Close() error {
	af := async.AwaitableFuture(conn.inner.Close())
	_, err := af.Await()
	return err
}

func (conn *netConn) LocalAddr() net.Addr {
	return netConnAddr{}
}

func (conn *netConn) RemoteAddr() net.Addr {
	return netConnAddr{}
}

func (conn *netConn) SetDeadline(_ time.Time) error {
	return os.ErrNoDeadline
}

func (conn *netConn) SetReadDeadline(_ time.Time) error {
	return os.ErrNoDeadline
}

func (conn *netConn) SetWriteDeadline(_ time.Time) error {
	return os.ErrNoDeadline
}

type netConnAddr struct{}

func (netConnAddr) Network() string { return "tlstream" }

func (netConnAddr) String() string { return "tlstream" }
