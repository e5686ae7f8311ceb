package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onTransactionRecorded []OnTransactionRecorded
	onDisputeOpened       []OnDisputeOpened
	onDisputeResolved     []OnDisputeResolved
	onChargeback          []OnChargeback
	onAccountLocked       []OnAccountLocked
	onOrderProcessed      []OnOrderProcessed
	onOrderRejected       []OnOrderRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run. Non-positive values keep
// the current timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
	}
	if v, ok := p.(OnDisputeOpened); ok {
		r.onDisputeOpened = append(r.onDisputeOpened, v)
	}
	if v, ok := p.(OnDisputeResolved); ok {
		r.onDisputeResolved = append(r.onDisputeResolved, v)
	}
	if v, ok := p.(OnChargeback); ok {
		r.onChargeback = append(r.onChargeback, v)
	}
	if v, ok := p.(OnAccountLocked); ok {
		r.onAccountLocked = append(r.onAccountLocked, v)
	}
	if v, ok := p.(OnOrderProcessed); ok {
		r.onOrderProcessed = append(r.onOrderProcessed, v)
	}
	if v, ok := p.(OnOrderRejected); ok {
		r.onOrderRejected = append(r.onOrderRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	check := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	check(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	check(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	check(reflect.TypeOf((*OnTransactionRecorded)(nil)).Elem(), "OnTransactionRecorded")
	check(reflect.TypeOf((*OnDisputeOpened)(nil)).Elem(), "OnDisputeOpened")
	check(reflect.TypeOf((*OnDisputeResolved)(nil)).Elem(), "OnDisputeResolved")
	check(reflect.TypeOf((*OnChargeback)(nil)).Elem(), "OnChargeback")
	check(reflect.TypeOf((*OnAccountLocked)(nil)).Elem(), "OnAccountLocked")
	check(reflect.TypeOf((*OnOrderProcessed)(nil)).Elem(), "OnOrderProcessed")
	check(reflect.TypeOf((*OnOrderRejected)(nil)).Elem(), "OnOrderRejected")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, manager interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, manager)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitTransactionRecorded emits a transaction recorded event.
func (r *Registry) EmitTransactionRecorded(ctx context.Context, tx *transaction.Transaction, acc *account.Account) {
	r.mu.RLock()
	plugins := r.onTransactionRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTransactionRecorded", func() error {
			return p.OnTransactionRecorded(ctx, tx, acc)
		})
	}
}

// EmitDisputeOpened emits a dispute opened event.
func (r *Registry) EmitDisputeOpened(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) {
	r.mu.RLock()
	plugins := r.onDisputeOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDisputeOpened", func() error {
			return p.OnDisputeOpened(ctx, disputed, acc)
		})
	}
}

// EmitDisputeResolved emits a dispute resolved event.
func (r *Registry) EmitDisputeResolved(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) {
	r.mu.RLock()
	plugins := r.onDisputeResolved
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDisputeResolved", func() error {
			return p.OnDisputeResolved(ctx, disputed, acc)
		})
	}
}

// EmitChargeback emits a chargeback event.
func (r *Registry) EmitChargeback(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) {
	r.mu.RLock()
	plugins := r.onChargeback
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnChargeback", func() error {
			return p.OnChargeback(ctx, disputed, acc)
		})
	}
}

// EmitAccountLocked emits an account locked event.
func (r *Registry) EmitAccountLocked(ctx context.Context, acc *account.Account) {
	r.mu.RLock()
	plugins := r.onAccountLocked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnAccountLocked", func() error {
			return p.OnAccountLocked(ctx, acc)
		})
	}
}

// EmitOrderProcessed emits an order processed event.
func (r *Registry) EmitOrderProcessed(ctx context.Context, order transaction.Order, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onOrderProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnOrderProcessed", func() error {
			return p.OnOrderProcessed(ctx, order, elapsed)
		})
	}
}

// EmitOrderRejected emits an order rejected event.
func (r *Registry) EmitOrderRejected(ctx context.Context, order transaction.Order, reason error) {
	r.mu.RLock()
	plugins := r.onOrderRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnOrderRejected", func() error {
			return p.OnOrderRejected(ctx, order, reason)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block order processing.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
