package core

import (
	"context"

	"cmosrtc-go/errcode"
	"cmosrtc-go/types"
)

// ---- Capability & device model ----

type CapabilitySpec struct {
	Domain string // "" => default for Kind
	Kind   types.Kind
	Name   string // "" => device ID
	Info   types.Info
}

// CapAddr is the resolved public address of a capability.
type CapAddr struct {
	Domain string
	Kind   string
	Name   string
}

// EnqueueResult reports whether a control request was accepted. Work that
// completes later is reported through Events.
type EnqueueResult struct {
	OK    bool
	Error errcode.Code
}

type Device interface {
	ID() string
	Capabilities() []CapabilitySpec
	Init(ctx context.Context) error
	// Control must not block; long work runs elsewhere and reports via Emit.
	Control(addr CapAddr, verb string, payload any) (EnqueueResult, error)
	Close() error // release claimed resources
}

// Builder input
type BuilderInput struct {
	ID, Type string
	Params   any
	Res      Resources
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}
