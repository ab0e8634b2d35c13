// Package session owns the UDP socket pose packets arrive on. It lets one
// remote peer stream at a time, answers session announcements with the
// handshake and tells competing senders to disconnect.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
)

var (
	ErrInvalidPort    = errors.New("invalid UDP port")
	ErrListenerClosed = errors.New("listener closed")
	ErrAlreadyStarted = errors.New("listener already started")
	ErrNoPeer         = errors.New("no active peer")
)

const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultStatsInterval = time.Minute
	maxDatagram          = 64 * 1024
)

// Config describes one listening port.
type Config struct {
	Address       string        `yaml:"address"`
	Port          int           `yaml:"port"`
	ReadBuffer    int           `yaml:"read_buffer"`
	MinAppVersion string        `yaml:"min_app_version"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// Stats counts datagrams by outcome.
type Stats struct {
	Datagrams       uint64 `json:"datagrams"`
	Bytes           uint64 `json:"bytes"`
	Accepted        uint64 `json:"accepted"`
	Rejected        uint64 `json:"rejected"`
	Ignored         uint64 `json:"ignored"`
	DecodeFailures  uint64 `json:"decode_failures"`
	HandshakesSent  uint64 `json:"handshakes_sent"`
	DisconnectsSent uint64 `json:"disconnects_sent"`
	ReadErrors      uint64 `json:"read_errors"`
}

type counters struct {
	datagrams, bytes, accepted, rejected, ignored  atomic.Uint64
	decodeFailures, handshakesSent, disconnectsSent atomic.Uint64
	readErrors                                      atomic.Uint64
}

// Peer is the remote app currently streaming.
type Peer struct {
	Addr         *net.UDPAddr `json:"-"`
	Address      string       `json:"address"`
	ConnectionID uuid.UUID    `json:"connection_id"`
	UserName     string       `json:"user_name,omitempty"`
	DeviceName   string       `json:"device_name,omitempty"`
	Version      string       `json:"version,omitempty"`
	Since        time.Time    `json:"since"`
}

// Option configures a Listener.
type Option func(*Listener)

// WithSocketFactory replaces net.ListenUDP.
func WithSocketFactory(f SocketFactory) Option {
	return func(l *Listener) { l.listen = f }
}

// WithClock overrides time.Now for peer bookkeeping.
func WithClock(clock func() time.Time) Option {
	return func(l *Listener) { l.clock = clock }
}

// WithSnapshotHook registers fn to run after every published snapshot. It
// runs on the receive goroutine and must not block.
func WithSnapshotHook(fn func(*pose.Snapshot)) Option {
	return func(l *Listener) { l.hooks = append(l.hooks, fn) }
}

// Listener receives pose datagrams on one port.
type Listener struct {
	cfg     Config
	decoder *pose.Decoder
	store   *pose.Store
	logger  log.Logger
	listen  SocketFactory
	clock   func() time.Time
	hooks   []func(*pose.Snapshot)

	// mu guards the socket, the peer and the handshake. It is held while a
	// datagram is arbitrated and decoded.
	mu               sync.Mutex
	conn             UDPSocket
	peer             *Peer
	handshake        Handshake
	handshakePayload []byte
	// versionWarned is the last sender warned about an outdated app.
	versionWarned string

	stats    counters
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewListener wires a listener to the decoder and store it feeds.
func NewListener(cfg Config, decoder *pose.Decoder, store *pose.Store, handshake Handshake, logger log.Logger, opts ...Option) (*Listener, error) {
	if decoder == nil || store == nil {
		return nil, errors.New("listener needs a decoder and a store")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	l := &Listener{
		cfg:     cfg,
		decoder: decoder,
		store:   store,
		logger:  logger.WithField("component", "session"),
		listen:  ListenUDP,
		clock:   time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if err := l.setHandshake(handshake); err != nil {
		return nil, err
	}
	return l, nil
}

// Start binds the socket and runs the receive loop in the background. Bind
// failures and invalid ports are returned immediately and never retried.
func (l *Listener) Start(ctx context.Context) error {
	if l.cfg.Port < 1 || l.cfg.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, l.cfg.Port)
	}
	select {
	case <-l.stop:
		return ErrListenerClosed
	default:
	}
	if l.running.Load() {
		return ErrAlreadyStarted
	}

	hostPort := net.JoinHostPort(l.cfg.Address, strconv.Itoa(l.cfg.Port))
	addr, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", hostPort, err)
	}
	conn, err := l.listen("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %s: %w", hostPort, err)
	}
	if l.cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(l.cfg.ReadBuffer); err != nil {
			l.logger.Warnf("Failed to set UDP receive buffer size to %d: %v", l.cfg.ReadBuffer, err)
		}
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.running.Store(true)

	l.logger.Infof("UDP listener started on %s", conn.LocalAddr())
	go l.run(ctx, conn)
	go l.logStats(ctx)
	return nil
}

func (l *Listener) run(ctx context.Context, conn UDPSocket) {
	defer close(l.done)
	buffer := make([]byte, maxDatagram)
	for {
		select {
		case <-ctx.Done():
			l.logger.Infof("UDP listener stopping: %v", ctx.Err())
			return
		case <-l.stop:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(l.cfg.PollInterval)); err != nil {
			l.logger.Debugf("Failed to set read deadline: %v", err)
		}
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.stats.readErrors.Add(1)
			l.logger.Warnf("UDP read error: %v", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buffer[:n])
		if err := l.HandleDatagram(payload, from); err != nil {
			l.logger.Debugf("Dropped datagram from %s: %v", from, err)
		}
	}
}

func (l *Listener) logStats(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			s := l.Stats()
			l.logger.Infof("UDP stats: %d datagrams (%s), %d accepted, %d rejected, %d decode failures",
				s.Datagrams, humanize.Bytes(s.Bytes), s.Accepted, s.Rejected, s.DecodeFailures)
		}
	}
}

type verdict int

const (
	accept verdict = iota
	claim
	reattach
	reject
	ignore
)

// hello holds the identity fields read before a datagram is admitted.
type hello struct {
	userName string
	version  string
}

func peekHello(payload []byte) hello {
	r := gjson.GetManyBytes(payload, "userName", "version")
	return hello{userName: r[0].String(), version: r[1].String()}
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.Port == b.Port && a.IP.Equal(b.IP)
}

// admit decides what to do with a datagram from addr. Callers hold l.mu.
func (l *Listener) admit(payload []byte, from *net.UDPAddr) verdict {
	if l.peer != nil && sameAddr(l.peer.Addr, from) {
		return accept
	}
	h := peekHello(payload)
	if l.peer != nil && !l.store.IsStale() {
		if h.userName != "" && h.userName == l.peer.UserName && l.peer.Addr.IP.Equal(from.IP) {
			return reattach
		}
		return reject
	}
	if l.cfg.MinAppVersion != "" {
		if h.version == "" {
			return ignore
		}
		if !VersionAtLeast(h.version, l.cfg.MinAppVersion) {
			if addr := from.String(); addr != l.versionWarned {
				l.versionWarned = addr
				l.logger.Warnf("Ignoring %s: app version %s, need %s or newer", from, h.version, l.cfg.MinAppVersion)
			}
			return ignore
		}
	}
	return claim
}

// HandleDatagram arbitrates and decodes one datagram. The receive loop calls
// it for every read; replay tools call it directly.
func (l *Listener) HandleDatagram(payload []byte, from *net.UDPAddr) error {
	l.stats.datagrams.Add(1)
	l.stats.bytes.Add(uint64(len(payload)))

	l.mu.Lock()
	defer l.mu.Unlock()

	v := l.admit(payload, from)
	switch v {
	case reject:
		l.stats.rejected.Add(1)
		l.logger.Debugf("Rejecting %s while %s is streaming", from, l.peerAddr())
		l.sendDisconnectLocked(from)
		return nil
	case ignore:
		l.stats.ignored.Add(1)
		return nil
	}

	res, err := l.decoder.Decode(payload)
	if err != nil {
		l.stats.decodeFailures.Add(1)
		return err
	}
	l.stats.accepted.Add(1)
	l.store.Publish(res)

	switch v {
	case claim:
		if l.peer != nil {
			l.logger.Infof("Peer %s replaces stale peer %s", from, l.peer.Addr)
		}
		l.peer = &Peer{ConnectionID: uuid.New(), Since: l.clock()}
		l.peer.setAddr(from)
		l.logger.WithFields(map[string]interface{}{
			"peer":          from.String(),
			"connection_id": l.peer.ConnectionID.String(),
		}).Infof("Peer connected")
	case reattach:
		l.logger.Infof("Peer %s moved from %s", res.Snapshot.UserName, l.peer.Addr)
		l.peer.setAddr(from)
	}
	l.peer.UserName = res.Snapshot.UserName
	l.peer.DeviceName = res.Snapshot.DeviceName
	l.peer.Version = res.Snapshot.Version

	if res.HandshakePending || v == reattach {
		l.sendHandshakeLocked(from)
	}
	for _, fn := range l.hooks {
		fn(res.Snapshot)
	}
	return nil
}

func (p *Peer) setAddr(addr *net.UDPAddr) {
	p.Addr = addr
	p.Address = addr.String()
}

func (l *Listener) peerAddr() string {
	if l.peer == nil {
		return "nobody"
	}
	return l.peer.Address
}

func (l *Listener) sendLocked(payload []byte, to *net.UDPAddr) error {
	if l.conn == nil {
		return ErrListenerClosed
	}
	_, err := l.conn.WriteToUDP(payload, to)
	return err
}

func (l *Listener) sendHandshakeLocked(to *net.UDPAddr) {
	if err := l.sendLocked(l.handshakePayload, to); err != nil {
		if errors.Is(err, ErrListenerClosed) {
			l.logger.Debugf("No socket, handshake for %s not sent", to)
			return
		}
		l.logger.Warnf("Failed to send handshake to %s: %v", to, err)
		return
	}
	l.stats.handshakesSent.Add(1)
	l.logger.Debugf("Sent handshake to %s", to)
}

func (l *Listener) sendDisconnectLocked(to *net.UDPAddr) error {
	if err := l.sendLocked(DisconnectPayload, to); err != nil {
		l.logger.Debugf("Failed to send disconnect to %s: %v", to, err)
		return err
	}
	l.stats.disconnectsSent.Add(1)
	return nil
}

func (l *Listener) setHandshake(h Handshake) error {
	h = h.Normalize()
	if err := h.Validate(); err != nil {
		return fmt.Errorf("invalid handshake: %w", err)
	}
	payload, err := h.MarshalJSON()
	if err != nil {
		return err
	}
	l.handshake = h
	l.handshakePayload = payload
	l.decoder.SetDesktop(h.Mode.IsDesktop())
	return nil
}

// SetHandshake replaces the handshake and sends it to the active peer.
func (l *Listener) SetHandshake(h Handshake) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.setHandshake(h); err != nil {
		return err
	}
	if l.peer != nil {
		l.sendHandshakeLocked(l.peer.Addr)
	}
	return nil
}

// Handshake returns the handshake sent to new sessions.
func (l *Listener) Handshake() Handshake {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handshake
}

// Disconnect asks addr to stop streaming. Delivery is not confirmed. If addr
// is the active peer the port is freed for the next sender.
func (l *Listener) Disconnect(addr *net.UDPAddr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.peer != nil && sameAddr(l.peer.Addr, addr) {
		l.peer = nil
	}
	return l.sendDisconnectLocked(addr)
}

// DisconnectPeer disconnects the active peer.
func (l *Listener) DisconnectPeer() error {
	l.mu.Lock()
	peer := l.peer
	l.mu.Unlock()
	if peer == nil {
		return ErrNoPeer
	}
	return l.Disconnect(peer.Addr)
}

// Peer returns a copy of the active peer.
func (l *Listener) Peer() (Peer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.peer == nil {
		return Peer{}, false
	}
	return *l.peer, true
}

// Stats returns the datagram counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Datagrams:       l.stats.datagrams.Load(),
		Bytes:           l.stats.bytes.Load(),
		Accepted:        l.stats.accepted.Load(),
		Rejected:        l.stats.rejected.Load(),
		Ignored:         l.stats.ignored.Load(),
		DecodeFailures:  l.stats.decodeFailures.Load(),
		HandshakesSent:  l.stats.handshakesSent.Load(),
		DisconnectsSent: l.stats.disconnectsSent.Load(),
		ReadErrors:      l.stats.readErrors.Load(),
	}
}

// Store returns the store this listener publishes to.
func (l *Listener) Store() *pose.Store {
	return l.store
}

// LocalAddr returns the bound address, or nil before Start.
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Shutdown stops the receive loop, tells the active peer to disconnect and
// releases the socket. It waits for the loop to exit or ctx to end.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })
	if l.running.Load() {
		select {
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	if l.peer != nil {
		l.sendDisconnectLocked(l.peer.Addr)
		l.peer = nil
	}
	err := l.conn.Close()
	l.conn = nil
	l.logger.Infof("UDP listener closed")
	return err
}

// Close shuts the listener down without a deadline.
func (l *Listener) Close() error {
	return l.Shutdown(context.Background())
}
