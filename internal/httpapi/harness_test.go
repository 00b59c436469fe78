package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/daemon"
	"github.com/jmylchreest/toastq/internal/loop"
	"github.com/jmylchreest/toastq/internal/metrics"
	"github.com/jmylchreest/toastq/internal/schedule"
	"github.com/jmylchreest/toastq/internal/toast"
)

type harness struct {
	srv     *httptest.Server
	svc     *daemon.Service
	loop    *loop.Loop
	sched   *schedule.Manual
	closing chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	l := loop.New(64)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sched := schedule.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	q := toast.New(sched, toast.WithEventHook(m.ObserveEvent))
	svc := daemon.NewService(l, q, nil)

	cfg := config.DefaultDaemonConfig().HTTP
	closing := make(chan struct{})
	srv := httptest.NewServer(newRouter(svc, cfg, reg, nil, closing))

	t.Cleanup(func() {
		select {
		case <-closing:
		default:
			close(closing)
		}
		srv.Close()
		cancel()
		<-errCh
	})

	return &harness{srv: srv, svc: svc, loop: l, sched: sched, closing: closing}
}

// advance moves the manual clock on the loop goroutine, where the queue lives.
func (h *harness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, h.loop.Call(context.Background(), func() { h.sched.Advance(d) }))
}

func (h *harness) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(h.srv.URL, h.srv.Client())
	require.NoError(t, err)
	return c
}

func (h *harness) request(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
