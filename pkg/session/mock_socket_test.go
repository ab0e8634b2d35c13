package session

import (
	"net"
	"sync"
	"time"
)

type mockPacket struct {
	data []byte
	addr *net.UDPAddr
}

// mockSocket delivers queued packets to ReadFromUDP and records writes. Reads
// honour the read deadline so the listener loop behaves as it does on a real
// socket.
type mockSocket struct {
	in        chan mockPacket
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	deadline time.Time
	sent     []mockPacket
	readBuf  int
}

func newMockSocket() *mockSocket {
	return &mockSocket{
		in:     make(chan mockPacket, 16),
		closed: make(chan struct{}),
	}
}

func (m *mockSocket) deliver(data []byte, addr *net.UDPAddr) {
	m.in <- mockPacket{data: data, addr: addr}
}

func (m *mockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	wait := time.Until(m.deadline)
	m.mu.Unlock()
	if wait <= 0 {
		wait = time.Millisecond
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-m.closed:
		return 0, nil, net.ErrClosed
	case pkt := <-m.in:
		return copy(b, pkt.data), pkt.addr, nil
	case <-timer.C:
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
}

func (m *mockSocket) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	select {
	case <-m.closed:
		return 0, net.ErrClosed
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mockPacket{data: append([]byte(nil), b...), addr: addr})
	return len(b), nil
}

func (m *mockSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf = bytes
	return nil
}

func (m *mockSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

func (m *mockSocket) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
}

func (m *mockSocket) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *mockSocket) sentTo(addr *net.UDPAddr) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, p := range m.sent {
		if sameAddr(p.addr, addr) {
			out = append(out, p.data)
		}
	}
	return out
}

func (m *mockSocket) factory() SocketFactory {
	return func(string, *net.UDPAddr) (UDPSocket, error) { return m, nil }
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
