package prober

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

var (
	_ Checker = (*HTTPChecker)(nil)
	_ Checker = (*ICMPChecker)(nil)
)

// HTTPChecker sends a GET and expects a 2xx answer.
type HTTPChecker struct {
	client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
				DisableKeepAlives: true,
			},
		},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", target, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

// ICMPChecker sends a single echo request.
type ICMPChecker struct {
	timeout    time.Duration
	privileged bool
}

func NewICMPChecker(timeout time.Duration, privileged bool) *ICMPChecker {
	return &ICMPChecker{
		timeout:    timeout,
		privileged: privileged || runtime.GOOS == "windows",
	}
}

func (c *ICMPChecker) Check(ctx context.Context, target string) error {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return fmt.Errorf("create pinger: %w", err)
	}
	pinger.Count = 1
	pinger.Timeout = c.timeout
	pinger.SetPrivileged(c.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", target, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return fmt.Errorf("ping %s: no reply within %s", target, c.timeout)
	}
	return nil
}
