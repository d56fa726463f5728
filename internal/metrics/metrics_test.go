// ABOUTME: Tests for the Prometheus recorder and its exposition handler
// ABOUTME: Reads counters back with testutil instead of scraping text

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()

	p.ObserveRPC("tools/call", nil)
	p.ObserveRPC("tools/call", errors.New("boom"))
	p.ObserveToolCall("create_board", 10*time.Millisecond, nil)
	p.ObserveAPIRequest("create_board", 201, 5*time.Millisecond)
	p.ObserveAPIRequest("create_board", 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.rpcRequests.WithLabelValues("tools/call", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rpcRequests.WithLabelValues("tools/call", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.toolCalls.WithLabelValues("create_board", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.apiRequests.WithLabelValues("create_board", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.apiRequests.WithLabelValues("create_board", "error")))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveToolCall("list_boards", time.Millisecond, nil)

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `miro_mcp_tool_calls_total{outcome="success",tool="list_boards"} 1`), body)
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	r.ObserveRPC("initialize", nil)
	r.ObserveToolCall("x", 0, nil)
	r.ObserveAPIRequest("x", 200, 0)
}
