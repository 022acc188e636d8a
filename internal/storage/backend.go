// Package storage decides whether Glance has a usable image store and which one.
package storage

import "fmt"

// BackendKind identifies which storage backend is active.
type BackendKind int

const (
	BackendNone BackendKind = iota
	BackendLocal
	BackendNetworked
)

func (k BackendKind) String() string {
	switch k {
	case BackendLocal:
		return "local"
	case BackendNetworked:
		return "ceph"
	default:
		return "none"
	}
}

// Backend is the selected image store. CredentialKey is only set for the
// networked backend.
type Backend struct {
	Kind          BackendKind
	CredentialKey string
}

// LocalAttached returns the local storage backend.
func LocalAttached() Backend {
	return Backend{Kind: BackendLocal}
}

// NetworkedRemote returns the networked backend keyed by the peer's credential.
func NetworkedRemote(key string) Backend {
	return Backend{Kind: BackendNetworked, CredentialKey: key}
}

// RelationState is a snapshot of one relation as delivered by the hosting
// runtime.
type RelationState struct {
	RelationName string
	IsPresent    bool
	IsReady      bool
	Data         map[string]string
}

func (r RelationState) Name() string  { return r.RelationName }
func (r RelationState) Present() bool { return r.IsPresent }
func (r RelationState) Ready() bool   { return r.IsPresent && r.IsReady }

// Context returns a copy of the negotiated attributes.
func (r RelationState) Context() map[string]string {
	out := make(map[string]string, len(r.Data))
	for k, v := range r.Data {
		out[k] = v
	}
	return out
}

// HasAttributes reports whether every key is present with a non-empty value.
func (r RelationState) HasAttributes(keys ...string) bool {
	for _, k := range keys {
		if r.Data[k] == "" {
			return false
		}
	}
	return true
}

// Reason explains a NotReady verdict.
type Reason string

const (
	ReasonCredentialPending Reason = "credential key not yet present"
	ReasonNoBackend         Reason = "no storage backend configured"
)

// Verdict is the outcome of one evaluation pass.
type Verdict struct {
	ready   bool
	reason  Reason
	backend Backend
	context map[string]string
}

// NotReady builds a negative verdict.
func NotReady(reason Reason) Verdict {
	return Verdict{reason: reason}
}

// Ready builds a positive verdict. context is what the networked backend
// exports to the config renderer and is ignored for other backends.
func Ready(backend Backend, context map[string]string) Verdict {
	v := Verdict{ready: true, backend: backend}
	if backend.Kind == BackendNetworked {
		v.context = context
	}
	return v
}

func (v Verdict) IsReady() bool    { return v.ready }
func (v Verdict) Reason() Reason   { return v.reason }
func (v Verdict) Backend() Backend { return v.backend }

// Context returns the negotiated attributes of the active networked relation,
// or an empty mapping when local storage is active or nothing is ready.
func (v Verdict) Context() map[string]string {
	out := make(map[string]string, len(v.context))
	for k, val := range v.context {
		out[k] = val
	}
	return out
}

func (v Verdict) String() string {
	if !v.ready {
		return fmt.Sprintf("NotReady(%s)", v.reason)
	}
	return fmt.Sprintf("Ready(%s)", v.backend.Kind)
}
