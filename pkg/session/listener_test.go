package session

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	l     *Listener
	sock  *mockSocket
	store *pose.Store
	clock *fakeClock
}

func newListener(t *testing.T, cfg Config, sock *mockSocket, opts ...Option) (*Listener, *pose.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	desc, err := rig.Lookup(rig.Unity)
	require.NoError(t, err)
	dec, err := pose.NewDecoder(desc, pose.DecoderOptions{
		Format: pose.FormatCompact,
		Clock:  clock.Now,
		Logger: log.Discard(),
	})
	require.NoError(t, err)
	store := pose.NewStore(time.Second, pose.WithClock(clock.Now))

	opts = append([]Option{WithSocketFactory(sock.factory()), WithClock(clock.Now)}, opts...)
	l, err := NewListener(cfg, dec, store, DefaultHandshake(), log.Discard(), opts...)
	require.NoError(t, err)
	return l, store, clock
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	sock := newMockSocket()
	l, store, clock := newListener(t, cfg, sock, opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { l.Close() })
	return &fixture{l: l, sock: sock, store: store, clock: clock}
}

func addrOf(ip string, port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

var (
	phoneA = addrOf("192.168.1.20", 5000)
	phoneB = addrOf("192.168.1.30", 5000)
)

func encode(t *testing.T, fields map[string]interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return b
}

func helloFrom(t *testing.T, user, version string) []byte {
	return encode(t, map[string]interface{}{
		"sessionUUID": uuid.NewString(),
		"version":     version,
		"userName":    user,
		"deviceName":  "iPhone",
		"PF":          1,
	})
}

func frameFrom(t *testing.T, user string) []byte {
	return encode(t, map[string]interface{}{"userName": user, "PF": 1, "Timestamp": 1.5})
}

func isHandshake(t *testing.T, b []byte) bool {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	_, ok := m["HANDSHAKE"]
	return ok
}

func TestStartRejectsInvalidPort(t *testing.T) {
	for _, port := range []int{-1, 0, 65536} {
		l, _, _ := newListener(t, Config{Port: port}, newMockSocket())
		err := l.Start(context.Background())
		assert.ErrorIs(t, err, ErrInvalidPort, "port %d", port)
	}
}

func TestStartReturnsBindError(t *testing.T) {
	l, _, _ := newListener(t, Config{Port: 8080}, newMockSocket(), WithSocketFactory(
		func(string, *net.UDPAddr) (UDPSocket, error) { return nil, errors.New("address already in use") },
	))
	err := l.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.Nil(t, l.LocalAddr())
}

func TestStartSetsReadBuffer(t *testing.T) {
	f := newFixture(t, Config{ReadBuffer: 1 << 20})
	f.sock.mu.Lock()
	defer f.sock.mu.Unlock()
	assert.Equal(t, 1<<20, f.sock.readBuf)
	assert.ErrorIs(t, f.l.Start(context.Background()), ErrAlreadyStarted)
}

func TestFirstPeerGetsHandshake(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))

	peer, ok := f.l.Peer()
	require.True(t, ok)
	assert.Equal(t, phoneA.String(), peer.Address)
	assert.Equal(t, "alice", peer.UserName)
	assert.Equal(t, "1.3.0", peer.Version)
	assert.NotEqual(t, uuid.Nil, peer.ConnectionID)
	assert.Equal(t, f.clock.Now(), peer.Since)

	sent := f.sock.sentTo(phoneA)
	require.Len(t, sent, 1)
	assert.True(t, isHandshake(t, sent[0]))
	assert.Equal(t, pose.Live, f.store.State())

	// ordinary frames are not answered
	require.NoError(t, f.l.HandleDatagram(frameFrom(t, "alice"), phoneA))
	assert.Len(t, f.sock.sentTo(phoneA), 1)

	stats := f.l.Stats()
	assert.Equal(t, uint64(2), stats.Datagrams)
	assert.Equal(t, uint64(2), stats.Accepted)
	assert.Equal(t, uint64(1), stats.HandshakesSent)
}

func TestSecondSenderIsRejected(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "bob", "1.3.0"), phoneB))

	assert.Equal(t, [][]byte{DisconnectPayload}, f.sock.sentTo(phoneB))
	peer, ok := f.l.Peer()
	require.True(t, ok)
	assert.Equal(t, phoneA.String(), peer.Address)
	assert.Equal(t, "alice", f.store.Latest().UserName, "rejected datagram was not decoded")
	assert.Equal(t, uint64(1), f.l.Stats().Rejected)
}

func TestStalePeerIsReplaced(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	first, _ := f.l.Peer()

	f.clock.Advance(2 * time.Second)
	assert.True(t, f.store.IsStale())
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "bob", "1.3.0"), phoneB))

	peer, ok := f.l.Peer()
	require.True(t, ok)
	assert.Equal(t, phoneB.String(), peer.Address)
	assert.NotEqual(t, first.ConnectionID, peer.ConnectionID)
	require.Len(t, f.sock.sentTo(phoneB), 1)
	assert.True(t, isHandshake(t, f.sock.sentTo(phoneB)[0]))
	assert.False(t, f.store.IsStale())
}

func TestSamePeerNewPortReattaches(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	first, _ := f.l.Peer()

	moved := addrOf("192.168.1.20", 5001)
	require.NoError(t, f.l.HandleDatagram(frameFrom(t, "alice"), moved))

	peer, ok := f.l.Peer()
	require.True(t, ok)
	assert.Equal(t, moved.String(), peer.Address)
	assert.Equal(t, first.ConnectionID, peer.ConnectionID)
	sent := f.sock.sentTo(moved)
	require.Len(t, sent, 1)
	assert.True(t, isHandshake(t, sent[0]), "handshake is resent to the new port")
	assert.Zero(t, f.l.Stats().Rejected)
}

func TestSameUserOtherHostIsRejected(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	require.NoError(t, f.l.HandleDatagram(frameFrom(t, "alice"), phoneB))
	assert.Equal(t, [][]byte{DisconnectPayload}, f.sock.sentTo(phoneB))
}

func TestMinAppVersion(t *testing.T) {
	f := newFixture(t, Config{MinAppVersion: DefaultMinAppVersion})

	require.NoError(t, f.l.HandleDatagram(frameFrom(t, "alice"), phoneA))
	_, ok := f.l.Peer()
	assert.False(t, ok, "a peer must say hello first")
	assert.Empty(t, f.sock.sentTo(phoneA))
	assert.Equal(t, uint64(1), f.l.Stats().Ignored)

	// outdated apps are ignored, not told to disconnect
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.2.4"), phoneA))
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.2.4"), phoneA))
	_, ok = f.l.Peer()
	assert.False(t, ok)
	assert.Empty(t, f.sock.sentTo(phoneA))
	assert.Equal(t, uint64(3), f.l.Stats().Ignored)
	assert.Zero(t, f.l.Stats().Rejected)
	assert.Zero(t, f.l.Stats().DisconnectsSent)

	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.10.0"), phoneA))
	_, ok = f.l.Peer()
	assert.True(t, ok)
}

func TestMalformedDatagramDoesNotClaim(t *testing.T) {
	f := newFixture(t, Config{})
	err := f.l.HandleDatagram([]byte("garbage"), phoneA)
	assert.ErrorIs(t, err, pose.ErrMalformedEnvelope)
	_, ok := f.l.Peer()
	assert.False(t, ok)
	assert.Equal(t, pose.Empty, f.store.State())
	assert.Equal(t, uint64(1), f.l.Stats().DecodeFailures)
}

func TestReceiveLoop(t *testing.T) {
	var hooked sync.WaitGroup
	hooked.Add(1)
	f := newFixture(t, Config{PollInterval: 10 * time.Millisecond},
		WithSnapshotHook(func(s *pose.Snapshot) { hooked.Done() }))

	f.sock.deliver(helloFrom(t, "alice", "1.3.0"), phoneA)
	require.Eventually(t, func() bool {
		_, ok := f.l.Peer()
		return ok && len(f.sock.sentTo(phoneA)) == 1
	}, time.Second, 5*time.Millisecond)
	hooked.Wait()
}

func TestShutdownDisconnectsPeer(t *testing.T) {
	f := newFixture(t, Config{PollInterval: 20 * time.Millisecond})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, f.l.Shutdown(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	sent := f.sock.sentTo(phoneA)
	require.Len(t, sent, 2)
	assert.Equal(t, DisconnectPayload, sent[1])
	assert.True(t, f.sock.isClosed())
	_, ok := f.l.Peer()
	assert.False(t, ok)

	assert.ErrorIs(t, f.l.Start(context.Background()), ErrListenerClosed)
	assert.NoError(t, f.l.Close(), "second shutdown is a no-op")
}

func TestContextCancelStopsLoop(t *testing.T) {
	sock := newMockSocket()
	l, _, _ := newListener(t, Config{Port: 8080, PollInterval: 10 * time.Millisecond}, sock)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	cancel()
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("receive loop did not exit")
	}
	require.NoError(t, l.Close())
}

func TestSetHandshakeResends(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))

	h := DefaultHandshake()
	h.Mode = ModeDesktop
	require.NoError(t, f.l.SetHandshake(h))
	assert.Equal(t, ModeDesktop, f.l.Handshake().Mode)

	sent := f.sock.sentTo(phoneA)
	require.Len(t, sent, 2)
	assert.Contains(t, string(sent[1]), `"mode":"Desktop"`)

	h.Rig = rig.Kind(42)
	assert.Error(t, f.l.SetHandshake(h))
	assert.Equal(t, rig.Unity, f.l.Handshake().Rig)
}

func TestDisconnectFreesPort(t *testing.T) {
	f := newFixture(t, Config{})
	assert.ErrorIs(t, f.l.DisconnectPeer(), ErrNoPeer)

	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	require.NoError(t, f.l.DisconnectPeer())
	assert.Equal(t, DisconnectPayload, f.sock.sentTo(phoneA)[1])
	_, ok := f.l.Peer()
	assert.False(t, ok)

	// not stale yet, but nobody owns the port
	require.NoError(t, f.l.HandleDatagram(helloFrom(t, "bob", "1.3.0"), phoneB))
	peer, _ := f.l.Peer()
	assert.Equal(t, phoneB.String(), peer.Address)

	require.NoError(t, f.l.Disconnect(phoneA))
	assert.Equal(t, uint64(2), f.l.Stats().DisconnectsSent)
}

func TestHandleWithoutSocket(t *testing.T) {
	l, store, _ := newListener(t, Config{Port: 8080}, newMockSocket())
	require.NoError(t, l.HandleDatagram(helloFrom(t, "alice", "1.3.0"), phoneA))
	assert.Equal(t, pose.Live, store.State())
	assert.Zero(t, l.Stats().HandshakesSent)
	assert.ErrorIs(t, l.Disconnect(phoneA), ErrListenerClosed)
}
