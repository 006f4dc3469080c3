package carrier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/model"
)

// SendResult is the single failure contract every adapter normalizes into.
// Adapters never return a Go error: transport failures, malformed responses
// and upstream rejections all become Accepted=false with a readable reason.
type SendResult struct {
	Accepted   bool
	MessageIDs []string // provider message ids, aligned to the destinations order
	Err        string
}

// Adapter turns (destinations, body, sender id) into one upstream carrier
// call. Credentials are passed at call time; adapters hold no credential
// state.
type Adapter interface {
	Name() model.Provider
	Send(ctx context.Context, creds model.ProviderSettings, destinations []string, body, senderID string) SendResult
}

func failure(format string, args ...any) SendResult {
	return SendResult{Err: fmt.Sprintf(format, args...)}
}

// Registry holds one adapter per supported carrier. Selection happens by
// configuration, never by branching in callers.
type Registry struct {
	adapters map[model.Provider]Adapter
}

func NewRegistry(cfg config.CarriersConfig) *Registry {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	r := &Registry{adapters: make(map[model.Provider]Adapter)}
	r.register(NewOnbuka(cfg.OnbukaBaseURL, client))
	r.register(NewEIMS(1, client))
	r.register(NewEIMS(2, client))
	r.register(NewEIMS(3, client))
	r.register(NewSMPP())
	return r
}

func (r *Registry) register(a Adapter) { r.adapters[a.Name()] = a }

// Get returns the adapter for p, or nil when the carrier is unknown.
func (r *Registry) Get(p model.Provider) Adapter { return r.adapters[p] }
