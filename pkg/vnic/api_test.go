package vnic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vnic-go/pkg/frame"

	"github.com/stretchr/testify/require"
)

func TestDeviceApi(t *testing.T) {
	d, _ := newTestDevice(t, false)
	d.HandleFrame(frame.EncodeARPRequest(guestMAC, guestIP, d.Identity().IP), &captureSender{})
	api := NewDeviceApi(d)

	rec := httptest.NewRecorder()
	api.Api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, uint64(1), stats.ARPRequests)
	require.Equal(t, uint64(1), stats.ARPRepliesSent)

	rec = httptest.NewRecorder()
	api.Api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/identity", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"mac":"52:55:0a:00:02:02","ip":"10.0.2.2"}`, rec.Body.String())

	// not opened yet
	rec = httptest.NewRecorder()
	api.Api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestManagementCommands(t *testing.T) {
	d, _ := newTestDevice(t, false)
	d.cfg.ListenPort = 0
	d.cfg.ManagementSocket = shortSocketPath(t)
	require.NoError(t, d.Open())
	t.Cleanup(func() { d.Close() })

	res := d.mgmt.Execute("identity")
	require.Equal(t, "OK: 10.0.2.2 is at 52:55:0a:00:02:02", res)

	res = d.mgmt.Execute("stats")
	require.Contains(t, res, "frames_received=0")
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "vnic")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "vnicd")
}
