package api

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"github.com/swoga/router-bridge/model"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	restLoginPath  = "goform/login"
	restStatusPath = "action/get_mgdb_params"
	restRebootPath = "action/reboot"
)

// RESTClient talks to the HMAC login / cookie session firmware.
type RESTClient struct {
	*transport
	username string
	password string

	mu       sync.Mutex
	loggedIn bool
	jar      http.CookieJar
}

var _ Client = (*RESTClient)(nil)

func newRESTClient(t *transport, opts Options) *RESTClient {
	return &RESTClient{
		transport: t,
		username:  opts.Username,
		password:  opts.Password,
	}
}

func (c *RESTClient) Name() string {
	return c.name
}

func (c *RESTClient) Protocol() Protocol {
	return ProtocolREST
}

func (c *RESTClient) Login(ctx context.Context) bool {
	login := &model.LoginRequest{
		Username: HexHMACMD5(VendorKey, c.username),
		Password: HexHMACMD5(VendorKey, c.password),
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Referer", c.url("common/login.html"))

	res, err := c.post(ctx, "login", restLoginPath, header, nil, login, nil)
	if err != nil {
		c.invalidate()
		c.log.Error("router login failed", zap.Error(err))
		return false
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		c.invalidate()
		c.log.Error("router login failed", zap.Error(err))
		return false
	}
	cookies := res.Cookies()
	jar.SetCookies(c.base, cookies)
	if len(cookies) == 0 {
		c.log.Warn("login response carried no session cookie")
	}

	c.mu.Lock()
	c.jar = jar
	c.loggedIn = true
	c.mu.Unlock()

	c.log.Info("router login successful")
	return true
}

func (c *RESTClient) GetStatus(ctx context.Context) map[string]interface{} {
	cookies, ok := c.ensureSession(ctx)
	if !ok {
		return nil
	}

	var data model.StatusResponse
	_, err := c.post(ctx, "get status", restStatusPath, nil, cookies, &model.StatusRequest{Keys: model.StatusKeys}, &data)
	if err != nil {
		c.invalidate()
		c.log.Error("failed to fetch router status", zap.Error(err))
		return nil
	}
	if data.Data == nil {
		c.invalidate()
		c.log.Error("failed to fetch router status", zap.Error(&ProtocolError{Op: "get status", Reason: "response has no data object"}))
		return nil
	}

	status := make(map[string]interface{}, len(model.StatusKeys))
	for _, key := range model.StatusKeys {
		if v, ok := data.Data[key]; ok && v != nil {
			status[key] = v
		}
	}
	return status
}

func (c *RESTClient) Reboot(ctx context.Context) bool {
	cookies, ok := c.ensureSession(ctx)
	if !ok {
		c.log.Error("router reboot skipped: not logged in")
		return false
	}

	_, err := c.post(ctx, "reboot", restRebootPath, nil, cookies, struct{}{}, nil)
	if err != nil {
		c.invalidate()
		c.log.Error("router reboot failed", zap.Error(err))
		return false
	}

	c.log.Info("router reboot requested")
	return true
}

// ensureSession logs in if needed and returns the session cookies.
func (c *RESTClient) ensureSession(ctx context.Context) ([]*http.Cookie, bool) {
	if cookies, ok := c.session(); ok {
		return cookies, true
	}
	if !c.Login(ctx) {
		return nil, false
	}
	return c.session()
}

func (c *RESTClient) session() ([]*http.Cookie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil, false
	}
	return c.jar.Cookies(c.base), true
}

func (c *RESTClient) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedIn = false
	c.jar = nil
}
