package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderlife/internal/health"
	"github.com/vladislavdragonenkov/orderlife/internal/version"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func findFreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func waitForHTTP(t *testing.T, url string) *http.Response {
	t.Helper()
	var (
		resp *http.Response
		err  error
	)
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "server at %s did not start", url)
	return resp
}

func TestRun_MemoryServesAPIAndShutsDown(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	resp := waitForHTTP(t, "http://"+cfg.HTTPAddr+"/api/v1/orders/me")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = waitForHTTP(t, "http://"+cfg.MetricsAddr+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported storage driver")
}

func TestRun_RequiresJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""

	require.Error(t, Run(context.Background(), cfg))
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "metrics-server")
	addr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := health.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", health.NewCriticalChecker("storage", func(context.Context) error { return nil }))
	startMetricsServer(ctx, addr, logger, handler)

	resp := waitForHTTP(t, "http://"+addr+"/metrics")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "go_goroutines"))

	for path, want := range map[string]int{"/healthz": 200, "/livez": 200, "/readyz": 200} {
		resp, err := http.Get("http://" + addr + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, want, resp.StatusCode, path)
	}

	cancel()
	require.Eventually(t, func() bool {
		_, err := http.Get("http://" + addr + "/livez")
		return err != nil
	}, 2*time.Second, 20*time.Millisecond, "metrics server should stop after cancellation")
}

func TestShutdownHTTP_NilServer(t *testing.T) {
	shutdownHTTP(nil, time.Second, log.WithField("test", "shutdown"))
}
