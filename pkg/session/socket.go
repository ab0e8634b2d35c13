package session

import (
	"errors"
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn the listener uses, so tests can run
// without real network connections.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// SocketFactory opens the listening socket.
type SocketFactory func(network string, laddr *net.UDPAddr) (UDPSocket, error)

// ListenUDP opens a real UDP socket.
func ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ UDPSocket = (*net.UDPConn)(nil)

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
