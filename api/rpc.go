package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/swoga/router-bridge/model"
	"go.uber.org/zap"
)

const (
	rpcPath = "jdcapi"

	rpcObjectSession = "session"
	rpcObjectStatic  = "jdcapi.static"

	// requested lifetime of a ubus session in seconds
	rpcSessionTimeout = 600
)

// RPCClient talks to ubus JSON-RPC firmware. The session is an opaque token
// that is passed as first parameter of every call.
type RPCClient struct {
	*transport
	username string
	password string
	lastID   atomic.Int64

	mu    sync.Mutex
	token string
}

var _ Client = (*RPCClient)(nil)

func newRPCClient(t *transport, opts Options) *RPCClient {
	return &RPCClient{
		transport: t,
		username:  opts.Username,
		password:  opts.Password,
	}
}

func (c *RPCClient) Name() string {
	return c.name
}

func (c *RPCClient) Protocol() Protocol {
	return ProtocolRPC
}

func (c *RPCClient) Login(ctx context.Context) bool {
	params := &model.RPCLoginParams{
		Username: c.username,
		Password: c.password,
		Timeout:  rpcSessionTimeout,
	}

	result, err := c.call(ctx, "login", model.NullSession, rpcObjectSession, "login", params)
	if err == nil {
		var session model.RPCSession
		if result == nil {
			err = &ProtocolError{Op: "login", Reason: "response has no session object"}
		} else if jerr := json.Unmarshal(result, &session); jerr != nil {
			err = &ProtocolError{Op: "login", Reason: fmt.Sprintf("decode session: %s", jerr)}
		} else if session.Token == "" {
			err = &ProtocolError{Op: "login", Reason: "response has no ubus_rpc_session"}
		} else {
			c.mu.Lock()
			c.token = session.Token
			c.mu.Unlock()
		}
	}
	if err != nil {
		c.invalidate()
		c.log.Error("router login failed", zap.Error(err))
		return false
	}

	c.log.Info("router login successful")
	return true
}

func (c *RPCClient) GetStatus(ctx context.Context) map[string]interface{} {
	token, ok := c.ensureSession(ctx)
	if !ok {
		return nil
	}

	result, err := c.call(ctx, "get status", token, rpcObjectStatic, "web_get_online_device_count", struct{}{})
	if err != nil {
		c.invalidate()
		c.log.Error("failed to fetch router status", zap.Error(err))
		return nil
	}
	if result == nil {
		return nil
	}

	var status map[string]interface{}
	if err := json.Unmarshal(result, &status); err != nil {
		c.invalidate()
		c.log.Error("failed to fetch router status", zap.Error(&ProtocolError{Op: "get status", Reason: err.Error()}))
		return nil
	}
	return status
}

func (c *RPCClient) Reboot(ctx context.Context) bool {
	token, ok := c.ensureSession(ctx)
	if !ok {
		c.log.Error("router reboot skipped: not logged in")
		return false
	}

	if _, err := c.call(ctx, "reboot", token, rpcObjectStatic, "reboot", struct{}{}); err != nil {
		c.invalidate()
		c.log.Error("router reboot failed", zap.Error(err))
		return false
	}

	c.log.Info("router reboot requested")
	return true
}

// call performs one ubus call and returns the object part of the result,
// which is nil if the device only answered with a status code.
func (c *RPCClient) call(ctx context.Context, op string, session string, object string, method string, args interface{}) (json.RawMessage, error) {
	req := &model.RPCRequest{
		JSONRPC: "2.0",
		ID:      c.lastID.Add(1),
		Method:  "call",
		Params:  []interface{}{session, object, method, args},
	}

	var res model.RPCResponse
	if _, err := c.post(ctx, op, rpcPath, nil, nil, req, &res); err != nil {
		return nil, err
	}

	if res.Error != nil {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("rpc error %d: %s", res.Error.Code, res.Error.Message)}
	}
	if len(res.Result) == 0 {
		return nil, &ProtocolError{Op: op, Reason: "empty result"}
	}

	var code int
	if err := json.Unmarshal(res.Result[0], &code); err != nil {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("decode status code: %s", err)}
	}
	if code != 0 {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("ubus status %d", code)}
	}

	if len(res.Result) < 2 {
		return nil, nil
	}
	return res.Result[1], nil
}

func (c *RPCClient) ensureSession(ctx context.Context) (string, bool) {
	if token := c.session(); token != "" {
		return token, true
	}
	if !c.Login(ctx) {
		return "", false
	}
	token := c.session()
	return token, token != ""
}

func (c *RPCClient) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *RPCClient) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
