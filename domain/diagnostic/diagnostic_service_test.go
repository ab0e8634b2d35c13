package diagnostic

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/processing"
	"github.com/open-teleop/poselink/pkg/rig"
)

func TestGetMetrics(t *testing.T) {
	desc, err := rig.Lookup(rig.Unity)
	require.NoError(t, err)
	dec, err := pose.NewDecoder(desc, pose.DecoderOptions{})
	require.NoError(t, err)
	store := pose.NewStore(time.Second)

	svc := NewDiagnosticService(Sources{Decoder: dec, Store: store})
	m := svc.GetMetrics()
	assert.Nil(t, m.Listener)
	assert.Nil(t, m.Pool)
	require.NotNil(t, m.Decoder)
	assert.Zero(t, m.Decoder.Decoded)
	assert.NotEmpty(t, m.HeapAlloc)
	assert.Greater(t, m.Goroutines, 0)

	svc.SetPool(processing.NewProcessingPool("frames", "t", 1, 4, customlog.Discard()))
	assert.NotNil(t, svc.GetMetrics().Pool)
}

func TestGetMetricsHandler(t *testing.T) {
	svc := NewDiagnosticService(Sources{Store: pose.NewStore(time.Second)})
	app := fiber.New()
	app.Get("/diag", svc.GetMetricsHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/diag", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out struct {
		Status  string        `json:"status"`
		Metrics SystemMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "success", out.Status)
	assert.Zero(t, out.Metrics.TouchesQueued)
}
