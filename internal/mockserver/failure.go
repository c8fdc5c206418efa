package mockserver

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"

	"github.com/reoring/postq/internal/config"
)

// FailureInjector decides which requests get the injected 500. Only
// requests using one of its methods count; the policy is deterministic for a
// given configuration.
type FailureInjector struct {
	mu      sync.Mutex
	mode    string
	rate    float64
	every   int
	rng     *rand.Rand
	seen    int
	methods map[string]bool
}

// NewFailureInjector builds an injector from cfg. Methods default to PUT.
func NewFailureInjector(cfg config.Failure) (*FailureInjector, error) {
	f := &FailureInjector{mode: cfg.Mode, rate: cfg.Rate, every: cfg.Every, methods: map[string]bool{}}
	switch cfg.Mode {
	case config.FailNever, config.FailAlways:
	case config.FailEveryNth:
		if cfg.Every < 1 {
			return nil, fmt.Errorf("mockserver: every_nth needs every >= 1")
		}
	case config.FailSeeded:
		if cfg.Rate < 0 || cfg.Rate > 1 {
			return nil, fmt.Errorf("mockserver: rate %v outside [0,1]", cfg.Rate)
		}
		seed := uint64(cfg.Seed)
		f.rng = rand.New(rand.NewPCG(seed, seed))
	default:
		return nil, fmt.Errorf("mockserver: unknown failure mode %q", cfg.Mode)
	}
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodPut}
	}
	for _, m := range methods {
		f.methods[strings.ToUpper(strings.TrimSpace(m))] = true
	}
	return f, nil
}

// NeverFail returns an injector that lets everything through.
func NeverFail() *FailureInjector {
	f, _ := NewFailureInjector(config.Failure{Mode: config.FailNever})
	return f
}

// AlwaysFail returns an injector failing every request using one of methods.
func AlwaysFail(methods ...string) *FailureInjector {
	f, _ := NewFailureInjector(config.Failure{Mode: config.FailAlways, Methods: methods})
	return f
}

// Applies reports whether method is subject to injection.
func (f *FailureInjector) Applies(method string) bool { return f.methods[method] }

// ShouldFail consumes one decision for a request using method.
func (f *FailureInjector) ShouldFail(method string) bool {
	if !f.Applies(method) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen++
	switch f.mode {
	case config.FailAlways:
		return true
	case config.FailEveryNth:
		return f.seen%f.every == 0
	case config.FailSeeded:
		return f.rng.Float64() < f.rate
	default:
		return false
	}
}
