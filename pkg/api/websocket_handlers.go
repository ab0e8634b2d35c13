package api

import (
	"encoding/json"
	"errors"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
)

// DefaultStreamHz is the push rate when none is configured.
const DefaultStreamHz = 30

// RegisterStreamRoutes mounts the pose stream at /ws/pose.
func RegisterStreamRoutes(app *fiber.App, store *pose.Store, hz int, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pose", websocket.New(func(conn *websocket.Conn) {
		PoseStreamHandler(conn, store, hz, logger)
	}))
	logger.Debugf("Registered pose stream at /ws/pose (%d Hz)", hz)
}

// streamMessage is one pushed update.
type streamMessage struct {
	Type     string            `json:"type"`
	State    string            `json:"state"`
	Snapshot *SnapshotResponse `json:"snapshot,omitempty"`
}

// PoseStreamHandler pushes the latest snapshot at hz whenever it or the
// connection state changed. Client messages are read and discarded.
func PoseStreamHandler(conn *websocket.Conn, store *pose.Store, hz int, logger customlog.Logger) {
	if hz <= 0 {
		hz = DefaultStreamHz
	}
	logger.Infof("Pose stream connected: %s", conn.RemoteAddr())

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logClose(logger, err)
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var lastSeq uint64
	lastState := pose.State(-1)
	for {
		select {
		case <-closed:
			logger.Infof("Pose stream disconnected: %s", conn.RemoteAddr())
			return
		case <-ticker.C:
		}

		snap := store.Latest()
		state := store.State()
		if state == lastState && (snap == nil || snap.Sequence == lastSeq) {
			continue
		}
		lastState = state

		msg := streamMessage{Type: "pose", State: state.String()}
		if snap != nil {
			lastSeq = snap.Sequence
			resp := NewSnapshotResponse(snap, state)
			msg.Snapshot = &resp
		}
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Errorf("Failed to marshal pose stream message: %v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logClose(logger, err)
			return
		}
	}
}

func logClose(logger customlog.Logger, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
		logger.Warnf("Pose stream error: %v", err)
		return
	}
	if !errors.Is(err, websocket.ErrCloseSent) && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
		logger.Debugf("Pose stream closed: %v", err)
	}
}
