package handles

import (
	"fmt"
	"sync"

	"github.com/qmuntal/stateless"
	"go.uber.org/zap"
)

// Handle is an opaque peer resource exclusively owned by the caller that
// created it. A handle moves through the lifecycle
//
//	Uninitialized --Init--> Initialized --Start--> Running --Stop--> Stopped
//
// and any state can be left with Destroy. Stopped is terminal for Start and
// Stop. The counter is accessible in Initialized, Running and Stopped only.
// Operations are safe for concurrent use: a single mutex per handle covers
// every check-then-act sequence, so transitions are never torn.
type Handle struct {
	id uint64

	mu      sync.Mutex
	sm      *stateless.StateMachine
	config  Config
	counter uint32
}

func newHandle(id uint64) *Handle {
	h := &Handle{id: id}
	h.sm = stateless.NewStateMachine(Uninitialized)
	h.sm.Configure(Uninitialized).
		Permit(triggerInit, Initialized).
		Permit(triggerDestroy, Destroyed)
	h.sm.Configure(Initialized).
		Permit(triggerStart, Running).
		Permit(triggerDestroy, Destroyed)
	h.sm.Configure(Running).
		Permit(triggerStop, Stopped).
		Permit(triggerDestroy, Destroyed)
	h.sm.Configure(Stopped).
		Permit(triggerDestroy, Destroyed)
	h.sm.Configure(Destroyed).
		Ignore(triggerDestroy)
	return h
}

func (h *Handle) ID() uint64 {
	return h.id
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state()
}

// Init validates and stores the configuration and moves the handle from
// Uninitialized to Initialized. The configuration is immutable afterwards:
// a second call fails with AlreadyInitialized and keeps the original one.
func (h *Handle) Init(config Config) error {
	if err := config.validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state() {
	case Initialized, Running, Stopped:
		return ErrAlreadyInitialized
	case Destroyed:
		return ErrInvalidState
	}
	if err := h.fire(triggerInit); err != nil {
		return err
	}
	h.config = config
	zap.S().Debugf("[HND] Handle %d initialized with endpoint '%s'", h.id, config.Endpoint)
	return nil
}

// Start moves the handle from Initialized to Running. It fails with
// InvalidState from any other state.
func (h *Handle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state() != Initialized {
		return ErrInvalidState
	}
	if err := h.fire(triggerStart); err != nil {
		return err
	}
	zap.S().Debugf("[HND] Handle %d started", h.id)
	return nil
}

// Stop moves the handle from Running to Stopped. It fails with NotRunning
// from any other state.
func (h *Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state() != Running {
		return ErrNotRunning
	}
	if err := h.fire(triggerStop); err != nil {
		return err
	}
	zap.S().Debugf("[HND] Handle %d stopped", h.id)
	return nil
}

// SetCounter stores the counter value. The counter is mutable in
// Initialized, Running and Stopped states only.
func (h *Handle) SetCounter(value uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.counterAccessible() {
		return ErrInvalidState
	}
	h.counter = value
	return nil
}

// Counter returns the current counter value under the same state guard as
// SetCounter.
func (h *Handle) Counter() (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.counterAccessible() {
		return 0, ErrInvalidState
	}
	return h.counter, nil
}

// Config returns the last accepted configuration, zero before Init.
func (h *Handle) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// Destroy releases the handle. It is idempotent: destroying a destroyed
// handle is a no-op, while every other operation on it keeps failing.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state() == Destroyed {
		return
	}
	if err := h.fire(triggerDestroy); err != nil {
		zap.S().Warnf("[HND] Failed to destroy handle %d: %v", h.id, err)
		return
	}
	zap.S().Debugf("[HND] Handle %d destroyed", h.id)
}

// Snapshot returns an externally visible copy of the handle.
func (h *Handle) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		ID:                h.id,
		State:             h.state(),
		Endpoint:          h.config.Endpoint,
		PanicOnDisconnect: h.config.PanicOnDisconnect,
		Counter:           h.counter,
	}
}

func (h *Handle) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fmt.Sprintf("%d '%s' (%s; %d)", h.id, h.config.Endpoint, h.state(), h.counter)
}

func (h *Handle) state() State {
	s, ok := h.sm.MustState().(State)
	if !ok {
		panic(fmt.Sprintf("invalid state type %T of handle state machine", h.sm.MustState()))
	}
	return s
}

func (h *Handle) counterAccessible() bool {
	switch h.state() {
	case Initialized, Running, Stopped:
		return true
	default:
		return false
	}
}

// fire forwards the trigger to the state machine. Callers check the current
// state first, so a rejected trigger indicates a mismatch between the checks
// and the transition table and is reported as InvalidState to keep the error
// taxonomy closed.
func (h *Handle) fire(tr trigger) error {
	if err := h.sm.Fire(tr); err != nil {
		zap.S().Errorf("[HND] Failed to fire trigger %s on handle %d: %v", tr, h.id, err)
		return ErrInvalidState
	}
	return nil
}

// Snapshot is a copy of the externally visible part of a handle.
type Snapshot struct {
	ID                uint64 `json:"id"`
	State             State  `json:"state"`
	Endpoint          string `json:"endpoint,omitempty"`
	PanicOnDisconnect bool   `json:"panic_on_disconnect"`
	Counter           uint32 `json:"counter"`
}
