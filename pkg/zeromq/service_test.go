package zeromq

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/processing"
)

type staticSource struct{ cfg *config.SessionConfig }

func (s staticSource) GetCurrentConfig() *config.SessionConfig { return s.cfg }

type fakePeers struct{ err error }

func (f *fakePeers) DisconnectPeer() error { return f.err }

func newService(t *testing.T) *ZeroMQService {
	t.Helper()
	svc, err := NewZeroMQService(Config{
		PublishAddress: "tcp://127.0.0.1:*",
		ControlAddress: "tcp://127.0.0.1:*",
	}, customlog.Discard())
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return svc
}

func request(t *testing.T, endpoint string, msgType string) ZeroMQMessage {
	t.Helper()
	socket, err := zmq4.NewSocket(zmq4.REQ)
	require.NoError(t, err)
	defer socket.Close()
	require.NoError(t, socket.SetLinger(0))
	require.NoError(t, socket.SetRcvtimeo(5*time.Second))
	require.NoError(t, socket.Connect(endpoint))

	req, err := json.Marshal(ZeroMQMessage{Type: msgType, Timestamp: float64(time.Now().Unix())})
	require.NoError(t, err)
	_, err = socket.SendBytes(req, 0)
	require.NoError(t, err)

	respData, err := socket.RecvBytes(0)
	require.NoError(t, err)
	var resp ZeroMQMessage
	require.NoError(t, json.Unmarshal(respData, &resp))
	return resp
}

func TestControlRequests(t *testing.T) {
	svc := newService(t)
	cfg := config.DefaultSessionConfig()
	peers := &fakePeers{}
	RegisterControlHandlers(svc, staticSource{&cfg}, peers, func() interface{} {
		return map[string]string{"state": "live"}
	}, customlog.Discard())
	require.NoError(t, svc.Start())

	ep := svc.ControlEndpoint()
	require.NotEmpty(t, ep)

	resp := request(t, ep, MsgTypeConfigRequest)
	assert.Equal(t, MsgTypeConfigResponse, resp.Type)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "default", data["config_id"])
	hs, ok := data["handshake"].(map[string]interface{})
	require.True(t, ok, "handshake is sent in wire form")
	assert.Contains(t, hs, "HANDSHAKE")

	resp = request(t, ep, MsgTypeStatusRequest)
	assert.Equal(t, MsgTypeStatusResponse, resp.Type)
	assert.Equal(t, map[string]interface{}{"state": "live"}, resp.Data)

	resp = request(t, ep, MsgTypeDisconnectRequest)
	assert.Equal(t, MsgTypeAck, resp.Type)

	peers.err = errors.New("no peer")
	resp = request(t, ep, MsgTypeDisconnectRequest)
	assert.Equal(t, MsgTypeError, resp.Type)

	resp = request(t, ep, "REBOOT")
	assert.Equal(t, MsgTypeError, resp.Type)
	errData := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(400), errData["code"])
}

func TestPublishFramesToSubscriber(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Start())

	var mu sync.Mutex
	var got []processing.Frame
	sub, err := NewFrameSubscriber("poselink.frame", func(topic string, f processing.Frame) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	}, customlog.Discard())
	require.NoError(t, err)
	require.NoError(t, sub.Start(svc.PublishEndpoint()))
	defer sub.Stop()

	s := &pose.Snapshot{
		Rig:        "Unity",
		Sequence:   11,
		ReceivedAt: time.Now(),
		Rotations:  []mgl64.Quat{mgl64.QuatIdent()},
		Valid:      []bool{true},
	}
	data, err := processing.NewFrameEncoder(customlog.Discard()).Encode(s, pose.Live)
	require.NoError(t, err)

	// PUB drops messages until the subscription has propagated
	require.Eventually(t, func() bool {
		_ = svc.PublishMessage("poselink.frame", data)
		_ = svc.PublishMessage("other.topic", data)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, uint64(11), got[0].Sequence)
	assert.Equal(t, "Unity", got[0].Rig)
	mu.Unlock()

	received, failures := sub.Counts()
	assert.NotZero(t, received)
	assert.Zero(t, failures)
}

func TestPublishAfterStop(t *testing.T) {
	svc, err := NewZeroMQService(Config{PublishAddress: "tcp://127.0.0.1:*"}, customlog.Discard())
	require.NoError(t, err)
	assert.Empty(t, svc.ControlEndpoint())
	svc.Stop()
	svc.Stop()

	assert.ErrorIs(t, svc.PublishMessage("t", []byte{1}), ErrServiceClosed)
	assert.ErrorIs(t, svc.Start(), ErrServiceClosed)
}

func TestNewServiceRequiresPublishAddress(t *testing.T) {
	_, err := NewZeroMQService(Config{}, customlog.Discard())
	assert.Error(t, err)
}

func TestDispatcher(t *testing.T) {
	d := NewMessageDispatcher(customlog.Discard())
	d.RegisterHandler("PING", HandlerFunc(func(data []byte) ([]byte, error) {
		return []byte("PONG"), nil
	}))

	out, err := d.Dispatch([]byte(`{"type":"PING"}`))
	require.NoError(t, err)
	assert.Equal(t, "PONG", string(out))

	_, err = d.Dispatch([]byte(`{"type":"NOPE"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = d.Dispatch([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
