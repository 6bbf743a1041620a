package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileshindira/stock-chat-app/chat"
	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/orders"
	"github.com/nileshindira/stock-chat-app/stream"
)

var (
	_ live.Observer      = (*Registry)(nil)
	_ stream.Observer    = (*Registry)(nil)
	_ chat.RouteObserver = (*Registry)(nil)
	_ orders.Observer    = (*Registry)(nil)
)

func TestObservers(t *testing.T) {
	r := New()

	r.ObservePass(2 * time.Millisecond)
	r.ObservePass(3 * time.Millisecond)
	r.ObserveItemFailure("walk")
	r.SetActiveStreams(4)
	r.SetActiveStreams(3)
	r.ObservePush("tick")
	r.ObserveRoute("hotels")
	r.ObserveRoute("hotels")
	r.ObserveOrder("rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.passes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.itemFailures.WithLabelValues("walk")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.streams))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pushes.WithLabelValues("tick")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.routes.WithLabelValues("hotels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.orders.WithLabelValues("rejected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.orders.WithLabelValues("accepted")))
}

func TestHandlerServesText(t *testing.T) {
	r := New()
	r.ObserveRoute("all")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `stockchat_chat_routes_total{route="all"} 1`)
	assert.Contains(t, string(body), "stockchat_engine_passes_total 0")
	assert.Contains(t, string(body), "go_goroutines")
}
