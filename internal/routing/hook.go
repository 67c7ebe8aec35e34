package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrHookNoResult means the hook answered but gave no bridge target.
	ErrHookNoResult = errors.New("routing hook returned no target")
	// ErrUnknownHook is returned by Get for unregistered names.
	ErrUnknownHook = errors.New("unknown routing hook")
	// ErrHookRateLimited means the call was dropped before reaching the hook.
	ErrHookRateLimited = errors.New("routing hook rate limited")
)

// HookRequest is what a custom routing hook is asked to resolve.
type HookRequest struct {
	RequestID   string `json:"request_id"`
	TenantID    string `json:"tenant_id"`
	Domain      string `json:"domain"`
	Destination string `json:"destination"`
}

// RoutingHook is a tenant-supplied last-resort routing strategy. Resolve
// returns a bridge target or an error; the cascade treats any error, panic
// or timeout as "no result".
type RoutingHook interface {
	Resolve(ctx context.Context, req HookRequest) (string, error)
}

// HookFunc adapts a function to RoutingHook.
type HookFunc func(ctx context.Context, req HookRequest) (string, error)

func (f HookFunc) Resolve(ctx context.Context, req HookRequest) (string, error) {
	return f(ctx, req)
}

// HookRegistry maps hook names, as referenced by tenant routing config, to
// implementations.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]registeredHook
}

type registeredHook struct {
	hook    RoutingHook
	timeout time.Duration
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]registeredHook)}
}

// Register adds hook under name. It runs under the cascade's default hook
// deadline.
func (r *HookRegistry) Register(name string, hook RoutingHook) {
	r.RegisterWithTimeout(name, hook, 0)
}

// RegisterWithTimeout adds hook under name with its own deadline, longer or
// shorter than the cascade default. Zero keeps the default.
func (r *HookRegistry) RegisterWithTimeout(name string, hook RoutingHook, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = registeredHook{hook: hook, timeout: timeout}
}

func (r *HookRegistry) Get(name string) (RoutingHook, error) {
	h, _, err := r.Lookup(name)
	return h, err
}

// Lookup returns the hook registered under name and its own deadline, zero
// when it uses the default.
func (r *HookRegistry) Lookup(name string) (RoutingHook, time.Duration, error) {
	if r == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	return h.hook, h.timeout, nil
}

// HTTPHook asks an external service for a bridge target. The service gets
// the HookRequest as JSON and answers {"target": "..."}.
type HTTPHook struct {
	URL    string
	Client *http.Client
}

func NewHTTPHook(url string, timeout time.Duration) *HTTPHook {
	return &HTTPHook{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

type hookResponse struct {
	Target string `json:"target"`
}

func (h *HTTPHook) Resolve(ctx context.Context, req HookRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode hook request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build hook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-Id", req.RequestID)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call hook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("hook returned status %d", resp.StatusCode)
	}

	var out hookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode hook response: %w", err)
	}
	if out.Target == "" {
		return "", ErrHookNoResult
	}
	return out.Target, nil
}

// RateLimitedHook sheds calls above a steady rate so a slow external
// service is not buried under retries during a call burst.
type RateLimitedHook struct {
	Hook    RoutingHook
	Limiter *rate.Limiter
}

// NewRateLimitedHook allows perSecond calls with the given burst. A burst
// below one is raised to one.
func NewRateLimitedHook(hook RoutingHook, perSecond float64, burst int) *RateLimitedHook {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedHook{
		Hook:    hook,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (h *RateLimitedHook) Resolve(ctx context.Context, req HookRequest) (string, error) {
	if !h.Limiter.Allow() {
		return "", ErrHookRateLimited
	}
	return h.Hook.Resolve(ctx, req)
}

// callHook runs hook with a hard deadline. A hook that ignores ctx is
// abandoned once the deadline passes.
func callHook(ctx context.Context, hook RoutingHook, req HookRequest, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		target string
		err    error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- result{err: fmt.Errorf("routing hook panicked: %v", rec)}
			}
		}()
		target, err := hook.Resolve(ctx, req)
		ch <- result{target: target, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		if r.target == "" {
			return "", ErrHookNoResult
		}
		return r.target, nil
	}
}
