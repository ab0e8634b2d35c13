package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
	"github.com/open-teleop/poselink/pkg/session"
)

// PoseHandler serves the snapshot store, the session and the rig.
type PoseHandler struct {
	store   *pose.Store
	session SessionSource
	motion  MotionSource
	desc    *rig.Descriptor
	logger  customlog.Logger
}

// NewPoseHandler creates the handler. session and motion may be nil, in
// which case their routes answer 503.
func NewPoseHandler(store *pose.Store, desc *rig.Descriptor, sess SessionSource, motion MotionSource, logger customlog.Logger) *PoseHandler {
	return &PoseHandler{
		store:   store,
		session: sess,
		motion:  motion,
		desc:    desc,
		logger:  logger,
	}
}

// RegisterPoseRoutes registers the read API under /api/v1.
func RegisterPoseRoutes(app *fiber.App, h *PoseHandler) {
	v1 := app.Group("/api/v1")
	v1.Get("/pose", h.handleGetPose)
	v1.Get("/session", h.handleGetSession)
	v1.Post("/session/disconnect", h.handleDisconnect)
	v1.Get("/rig", h.handleGetRig)
	v1.Get("/rig/local", h.handleGetLocalPose)
	v1.Get("/motion", h.handleGetMotion)

	h.logger.Debugf("Registered pose API endpoints under /api/v1")
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " is not available",
	})
}

func (h *PoseHandler) handleGetPose(c *fiber.Ctx) error {
	snap := h.store.Latest()
	if snap == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "no pose received yet",
			"state": pose.Empty.String(),
		})
	}
	return c.JSON(NewSnapshotResponse(snap, h.store.State()))
}

func (h *PoseHandler) handleGetSession(c *fiber.Ctx) error {
	if h.session == nil {
		return unavailable(c, "session")
	}
	resp := SessionResponse{
		State:            h.store.State().String(),
		HandshakePending: h.store.IsHandshakePending(),
		Stats:            h.session.Stats(),
	}
	if p, ok := h.session.Peer(); ok {
		resp.Peer = &p
	}
	if hs, err := json.Marshal(h.session.Handshake()); err == nil {
		resp.Handshake = hs
	}
	return c.JSON(resp)
}

func (h *PoseHandler) handleDisconnect(c *fiber.Ctx) error {
	if h.session == nil {
		return unavailable(c, "session")
	}
	if err := h.session.DisconnectPeer(); err != nil {
		if errors.Is(err, session.ErrNoPeer) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Errorf("Failed to disconnect peer: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.logger.Infof("Peer disconnected through the API")
	return c.JSON(fiber.Map{"message": "peer disconnected"})
}

func (h *PoseHandler) handleGetRig(c *fiber.Ctx) error {
	return c.JSON(NewRigResponse(h.desc))
}

func (h *PoseHandler) handleGetLocalPose(c *fiber.Ctx) error {
	if h.motion == nil {
		return unavailable(c, "motion")
	}
	return c.JSON(h.motion.LocalPose())
}

func (h *PoseHandler) handleGetMotion(c *fiber.Ctx) error {
	if h.motion == nil {
		return unavailable(c, "motion")
	}
	return c.JSON(h.motion.State())
}
