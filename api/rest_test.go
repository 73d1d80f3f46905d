package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swoga/router-bridge/model"
	"go.uber.org/zap/zaptest"
)

type fakeREST struct {
	logins   atomic.Int32
	statuses atomic.Int32
	reboots  atomic.Int32

	mu           sync.Mutex
	loginStatus  int
	statusStatus int
	status       string
}

func (f *fakeREST) set(loginStatus, statusStatus int, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginStatus, f.statusStatus, f.status = loginStatus, statusStatus, status
}

func (f *fakeREST) get() (int, int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginStatus, f.statusStatus, f.status
}

func (f *fakeREST) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/goform/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		loginStatus, _, _ := f.get()
		var req model.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, HexHMACMD5(VendorKey, "admin"), req.Username)
		assert.Equal(t, HexHMACMD5(VendorKey, "secret"), req.Password)
		assert.Contains(t, r.Header.Get("Referer"), "/common/login.html")
		if loginStatus != 0 {
			w.WriteHeader(loginStatus)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SESSIONID", Value: "s3ss10n", Path: "/"})
		w.Write([]byte(`{"result":"0"}`))
	})
	mux.HandleFunc("/action/get_mgdb_params", func(w http.ResponseWriter, r *http.Request) {
		f.statuses.Add(1)
		_, statusStatus, status := f.get()
		cookie, err := r.Cookie("SESSIONID")
		if err != nil || cookie.Value != "s3ss10n" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req model.StatusRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.StatusKeys, req.Keys)
		if statusStatus != 0 {
			w.WriteHeader(statusStatus)
			return
		}
		w.Write([]byte(status))
	})
	mux.HandleFunc("/action/reboot", func(w http.ResponseWriter, r *http.Request) {
		f.reboots.Add(1)
		if _, err := r.Cookie("SESSIONID"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	})
	return mux
}

func newTestREST(t *testing.T, f *fakeREST) (*RESTClient, *httptest.Server) {
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	client, err := New("r106", ProtocolREST, Options{
		Address:  server.URL,
		Username: "admin",
		Password: "secret",
		Timeout:  time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client.(*RESTClient), server
}

func TestRESTClient_GetStatus(t *testing.T) {
	f := &fakeREST{status: `{"data":{"device_battery_level_percent":"59","mnet_sig_level":4,"unlisted_key":"x"}}`}
	client, _ := newTestREST(t, f)

	status := client.GetStatus(context.Background())

	assert.Equal(t, map[string]interface{}{
		"device_battery_level_percent": "59",
		"mnet_sig_level":               float64(4),
	}, status)
	assert.EqualValues(t, 1, f.logins.Load())

	// the session is reused
	client.GetStatus(context.Background())
	assert.EqualValues(t, 1, f.logins.Load())
	assert.EqualValues(t, 2, f.statuses.Load())
}

func TestRESTClient_LoginFailure(t *testing.T) {
	f := &fakeREST{loginStatus: http.StatusForbidden}
	client, _ := newTestREST(t, f)

	assert.False(t, client.Login(context.Background()))
	assert.Empty(t, client.GetStatus(context.Background()))
	assert.EqualValues(t, 0, f.statuses.Load())
}

func TestRESTClient_StatusFailureInvalidatesSession(t *testing.T) {
	f := &fakeREST{statusStatus: http.StatusInternalServerError}
	client, _ := newTestREST(t, f)

	assert.Empty(t, client.GetStatus(context.Background()))
	assert.EqualValues(t, 1, f.logins.Load())
	_, ok := client.session()
	assert.False(t, ok)

	// no retry inside the failed call; the next call logs in again
	f.set(0, 0, `{"data":{"device_uptime":"3600"}}`)
	status := client.GetStatus(context.Background())
	assert.Equal(t, "3600", status["device_uptime"])
	assert.EqualValues(t, 2, f.logins.Load())
}

func TestRESTClient_StatusWithoutData(t *testing.T) {
	f := &fakeREST{status: `{"retcode":"1"}`}
	client, _ := newTestREST(t, f)

	assert.Empty(t, client.GetStatus(context.Background()))
	_, ok := client.session()
	assert.False(t, ok)
}

func TestRESTClient_StatusNotJSON(t *testing.T) {
	f := &fakeREST{status: `<html>login</html>`}
	client, _ := newTestREST(t, f)

	assert.Empty(t, client.GetStatus(context.Background()))
	_, ok := client.session()
	assert.False(t, ok)
}

func TestRESTClient_RebootLogsInOnce(t *testing.T) {
	f := &fakeREST{}
	client, _ := newTestREST(t, f)

	assert.True(t, client.Reboot(context.Background()))
	assert.EqualValues(t, 1, f.logins.Load())
	assert.EqualValues(t, 1, f.reboots.Load())
}

func TestRESTClient_RebootWithoutLogin(t *testing.T) {
	f := &fakeREST{loginStatus: http.StatusInternalServerError}
	client, _ := newTestREST(t, f)

	assert.False(t, client.Reboot(context.Background()))
	assert.EqualValues(t, 1, f.logins.Load())
	assert.EqualValues(t, 0, f.reboots.Load())
}

func TestRESTClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, err := New("slow", ProtocolREST, Options{Address: server.URL, Timeout: 100 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	start := time.Now()
	assert.False(t, client.Login(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRESTClient_Unreachable(t *testing.T) {
	client, err := New("gone", ProtocolREST, Options{Address: "http://127.0.0.1:1", Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Empty(t, client.GetStatus(context.Background()))
	assert.False(t, client.Reboot(context.Background()))
}
