// Package prober checks outbound connectivity independently of any router
// API. It keeps only the outcome of the last probe.
package prober

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds one probe.
const DefaultTimeout = 5 * time.Second

type Method string

const (
	MethodHTTP Method = "http"
	MethodICMP Method = "icmp"
)

// Result is the outcome of one probe.
type Result struct {
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Checker performs one reachability check against target.
type Checker interface {
	Check(ctx context.Context, target string) error
}

type Options struct {
	Target   string
	Method   Method
	Timeout  time.Duration
	Interval time.Duration
	// Privileged switches ICMP probes to raw sockets.
	Privileged bool
}

type Prober struct {
	target  string
	method  Method
	checker Checker
	limiter *rate.Limiter
	now     func() time.Time
	log     *zap.Logger

	mu   sync.RWMutex
	last Result
}

func New(opts Options, log *zap.Logger) (*Prober, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var checker Checker
	var target string
	switch opts.Method {
	case MethodHTTP, "":
		opts.Method = MethodHTTP
		checker = NewHTTPChecker(timeout)
		target = httpTarget(opts.Target)
	case MethodICMP:
		checker = NewICMPChecker(timeout, opts.Privileged)
		target = hostTarget(opts.Target)
	default:
		return nil, fmt.Errorf("unsupported probe method: %s", opts.Method)
	}
	if target == "" {
		return nil, fmt.Errorf("probe target is empty")
	}

	return NewWithChecker(target, opts.Method, checker, opts.Interval, log), nil
}

// NewWithChecker builds a prober around an arbitrary checker.
func NewWithChecker(target string, method Method, checker Checker, interval time.Duration, log *zap.Logger) *Prober {
	limit := rate.Inf
	if interval > 0 {
		// a tenth of slack, so probes ticking at interval are not dropped
		limit = rate.Every(interval - interval/10)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{
		target:  target,
		method:  method,
		checker: checker,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		log:     log.With(zap.String("probe_target", target)),
	}
}

func (p *Prober) Target() string {
	return p.target
}

func (p *Prober) Method() Method {
	return p.method
}

// Last returns the result of the most recent probe.
func (p *Prober) Last() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Update probes unless a probe ran within the interval.
func (p *Prober) Update(ctx context.Context) Result {
	if !p.limiter.AllowN(p.now(), 1) {
		return p.Last()
	}
	return p.Probe(ctx)
}

// Probe runs one check and records its outcome. Failures only end up in the
// result.
func (p *Prober) Probe(ctx context.Context) Result {
	start := p.now()
	err := p.checker.Check(ctx, p.target)
	result := Result{
		Time:     start,
		Duration: p.now().Sub(start),
		Success:  err == nil,
	}
	if err != nil {
		result.Error = err.Error()
		p.log.Debug("probe failed", zap.Error(err))
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()
	return result
}

func httpTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	return target
}

func hostTarget(target string) string {
	target = strings.TrimSpace(target)
	if i := strings.Index(target, "://"); i >= 0 {
		target = target[i+3:]
	}
	if i := strings.IndexAny(target, "/?#"); i >= 0 {
		target = target[:i]
	}
	return target
}
