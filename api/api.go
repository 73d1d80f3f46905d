package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every call to a router.
const DefaultTimeout = 5 * time.Second

// maximum number of response bytes read from a router
const maxBody = 1 << 20

type Protocol string

const (
	// ProtocolREST is the HMAC login / cookie session family (/goform, /action).
	ProtocolREST Protocol = "rest"
	// ProtocolRPC is the ubus JSON-RPC family behind /jdcapi.
	ProtocolRPC Protocol = "rpc"
)

// Client is the protocol agnostic contract of a router session. None of the
// methods return errors: failures are logged, the session is dropped and the
// caller sees false or an empty status.
type Client interface {
	Name() string
	Protocol() Protocol

	// Login establishes a fresh session.
	Login(ctx context.Context) bool

	// GetStatus logs in when there is no valid session and fetches the
	// status fields. An empty result means "no update".
	GetStatus(ctx context.Context) map[string]interface{}

	// Reboot logs in when there is no valid session and sends one reboot
	// command. It is never retried.
	Reboot(ctx context.Context) bool
}

type Options struct {
	Address            string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// New returns the client implementation for protocol.
func New(name string, protocol Protocol, opts Options, log *zap.Logger) (Client, error) {
	t, err := newTransport(name, opts, log)
	if err != nil {
		return nil, err
	}

	switch protocol {
	case ProtocolREST, "":
		return newRESTClient(t, opts), nil
	case ProtocolRPC:
		return newRPCClient(t, opts), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

// ParseProtocol maps configuration spellings to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rest", "hmac", "r106":
		return ProtocolREST, nil
	case "rpc", "ubus", "jdcapi":
		return ProtocolRPC, nil
	default:
		return "", fmt.Errorf("unknown protocol %q", s)
	}
}

// transport is the shared plumbing of both protocol families: one
// http.Client per router, JSON in and out.
type transport struct {
	name    string
	base    *url.URL
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

func newTransport(name string, opts Options, log *zap.Logger) (*transport, error) {
	address := opts.Address
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	base, err := url.Parse(strings.TrimRight(address, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", opts.Address, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid address %q: missing host", opts.Address)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &transport{
		name:    name,
		base:    base,
		timeout: timeout,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
			},
			Timeout: timeout,
		},
		log: log.With(zap.String("router", name)),
	}, nil
}

func (t *transport) url(path string) string {
	return t.base.String() + "/" + strings.TrimLeft(path, "/")
}

// post sends data as JSON and decodes the answer into out if out is not nil.
// The returned response has its body drained and closed and is only useful
// for headers and cookies.
func (t *transport) post(ctx context.Context, op string, path string, header http.Header, cookies []*http.Cookie, data interface{}, out interface{}) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var buf io.Reader = http.NoBody
	if data != nil {
		body, err := json.Marshal(data)
		if err != nil {
			return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("encode request: %s", err)}
		}
		buf = bytes.NewReader(body)
	}

	url := t.url(path)
	t.log.Debug("send request", zap.String("op", op), zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := t.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		t.log.Error("error from API", zap.String("op", op), zap.Int("status", res.StatusCode), zap.ByteString("response", body))
		return nil, &TransportError{Op: op, StatusCode: res.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("decode response: %s", err)}
		}
		t.log.Debug("response", zap.String("op", op), zap.Any("data", out))
	}

	return res, nil
}
