package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
)

// MinCameraFPS is the lowest camera rate the app accepts.
const MinCameraFPS = 30

// DefaultMinAppVersion is the oldest app that speaks the compact protocol.
const DefaultMinAppVersion = "1.2.5"

// Mode is the capture mode requested from the app.
type Mode string

const (
	ModeRoom             Mode = "Room"
	ModeDesktop          Mode = "Desktop"
	ModePortrait         Mode = "Portrait"
	ModeRoomBodyOnly     Mode = "RoomBodyOnly"
	ModePortraitBodyOnly Mode = "PortraitBodyOnly"
)

var modes = []Mode{ModeRoom, ModeDesktop, ModePortrait, ModeRoomBodyOnly, ModePortraitBodyOnly}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	for _, m := range modes {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// IsDesktop reports whether the app only tracks the upper body.
func (m Mode) IsDesktop() bool {
	return m == ModeDesktop
}

// ModelConfig tunes the event detectors running in the app.
type ModelConfig struct {
	StepSensitivity   float64 `json:"stepSensitivity" yaml:"step_sensitivity"`
	JumpSensitivity   float64 `json:"jumpSensitivity" yaml:"jump_sensitivity"`
	ArmSensitivity    float64 `json:"armSensitivity" yaml:"arm_sensitivity"`
	CrouchSensitivity float64 `json:"crouchSensitivity" yaml:"crouch_sensitivity"`
}

// DefaultModelConfig returns the app's stock sensitivities.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		StepSensitivity:   0.75,
		JumpSensitivity:   0.25,
		ArmSensitivity:    0.5,
		CrouchSensitivity: 0.5,
	}
}

// Handshake is the configuration sent to a peer when it announces a session.
type Handshake struct {
	Name         string      `yaml:"name"`
	Rig          rig.Kind    `yaml:"rig"`
	Mode         Mode        `yaml:"mode"`
	Context      string      `yaml:"context"`
	WhoAmI       string      `yaml:"whoami"`
	Signature    string      `yaml:"signature"`
	Mirror       bool        `yaml:"mirror"`
	Face         bool        `yaml:"face"`
	SyncFPS      int         `yaml:"sync_fps"`
	CameraFPS    int         `yaml:"camera_fps"`
	PacketFormat pose.Format `yaml:"packet_format"`
	Version      string      `yaml:"version"`
	Config       ModelConfig `yaml:"model"`
}

// DefaultHandshake asks for compact Unity-rig packets in room mode.
func DefaultHandshake() Handshake {
	return Handshake{
		Name:         "poselink",
		Rig:          rig.Unity,
		Mode:         ModeRoom,
		Context:      "Default",
		SyncFPS:      60,
		CameraFPS:    60,
		PacketFormat: pose.FormatCompact,
		Version:      "1.3.0",
		Config:       DefaultModelConfig(),
	}
}

// Normalize clamps the frame rates. The camera runs at least MinCameraFPS and
// the sync rate never undercuts it.
func (h Handshake) Normalize() Handshake {
	if h.CameraFPS < MinCameraFPS {
		h.CameraFPS = MinCameraFPS
	}
	if h.SyncFPS < h.CameraFPS {
		h.SyncFPS = h.CameraFPS
	}
	if h.Mode == "" {
		h.Mode = ModeRoom
	}
	return h
}

// Validate checks the fields the app refuses to start without.
func (h Handshake) Validate() error {
	if _, err := ParseMode(string(h.Mode)); err != nil {
		return err
	}
	if _, err := rig.Lookup(h.Rig); err != nil {
		return err
	}
	if h.PacketFormat != pose.FormatVerbose && h.PacketFormat != pose.FormatCompact {
		return fmt.Errorf("unknown packet format %d", h.PacketFormat)
	}
	return nil
}

type handshakeBody struct {
	Name         string `json:"name"`
	Rig          string `json:"rig"`
	Mode         string `json:"mode"`
	Context      string `json:"context"`
	WhoAmI       string `json:"whoami"`
	Signature    string `json:"signature"`
	Mirror       string `json:"mirror"`
	Face         string `json:"face"`
	SyncFPS      int    `json:"syncFPS"`
	CameraFPS    int    `json:"cameraFPS"`
	PacketFormat int    `json:"packetFormat"`
	Version      string `json:"version"`
}

type handshakeEnvelope struct {
	Handshake handshakeBody `json:"HANDSHAKE"`
	Config    ModelConfig   `json:"CONFIG"`
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// MarshalJSON renders the wire form of the handshake reply.
func (h Handshake) MarshalJSON() ([]byte, error) {
	h = h.Normalize()
	return json.Marshal(handshakeEnvelope{
		Handshake: handshakeBody{
			Name:         h.Name,
			Rig:          h.Rig.String(),
			Mode:         string(h.Mode),
			Context:      h.Context,
			WhoAmI:       h.WhoAmI,
			Signature:    h.Signature,
			Mirror:       yesNo(h.Mirror),
			Face:         yesNo(h.Face),
			SyncFPS:      h.SyncFPS,
			CameraFPS:    h.CameraFPS,
			PacketFormat: int(h.PacketFormat),
			Version:      h.Version,
		},
		Config: h.Config,
	})
}

// DisconnectPayload asks a peer to stop streaming.
var DisconnectPayload = []byte(`{"REQUESTS":["DISCONNECT"]}`)

// CompareVersions compares dotted app versions such as "1.2.5". Malformed
// versions sort before every valid one.
func CompareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// VersionAtLeast reports whether v is min or newer. An empty min accepts
// everything.
func VersionAtLeast(v, min string) bool {
	if min == "" {
		return true
	}
	return CompareVersions(v, min) >= 0
}
