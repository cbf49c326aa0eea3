package app

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/mini-server/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Directory = t.TempDir()
	cfg.ShutdownTimeout = 1
	return cfg
}

func TestApp_RunAndShutdown(t *testing.T) {
	var logs bytes.Buffer
	a, err := NewWithLogger(testConfig(t), zerolog.New(zerolog.SyncWriter(&logs)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.Engine().Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	c, err := net.DialTimeout("tcp", a.Engine().Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()
	_, err = io.WriteString(c, "GET /echo/app HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	resp, err := nethttp.ReadResponse(bufio.NewReader(c), nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "app", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	out := logs.String()
	assert.Contains(t, out, `"message":"request"`)
	assert.Contains(t, out, `"route":"GET /echo/*rest"`)
	assert.Contains(t, out, `"message":"server stopped"`)
}

func TestApp_New(t *testing.T) {
	a, err := NewWithLogger(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, a.Engine().Routes(), 5)
	assert.NotEmpty(t, a.Store().Base())

	bad := testConfig(t)
	bad.Directory = ""
	_, err = NewWithLogger(bad, zerolog.Nop())
	assert.Error(t, err)
}

func TestApp_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	a, err := NewWithLogger(cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, a.Run(context.Background()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Env = config.EnvProduction
	cfg.LogLevel = "warn"

	log, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"env":"production"`)

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, &buf)
	assert.Error(t, err)
}
