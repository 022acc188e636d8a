package charm

import "fmt"

// StatusKind is the coarse state shown to the administrator.
type StatusKind string

const (
	StatusActive  StatusKind = "Active"
	StatusWaiting StatusKind = "Waiting"
	StatusBlocked StatusKind = "Blocked"
)

// ServiceStatus is a status kind with a human readable message.
type ServiceStatus struct {
	Kind    StatusKind
	Message string
}

func Active() ServiceStatus { return ServiceStatus{Kind: StatusActive} }

func Waiting(message string) ServiceStatus {
	return ServiceStatus{Kind: StatusWaiting, Message: message}
}

func Blocked(message string) ServiceStatus {
	return ServiceStatus{Kind: StatusBlocked, Message: message}
}

func (s ServiceStatus) String() string {
	if s.Message == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Message)
}

// MissingStorageMessage is the remediation hint shown when no storage backend
// can be configured.
const MissingStorageMessage = "Missing storage. Relate to networked storage or add local storage to continue."

// Phase is the position of the last ConfigureService call in the
// configuration state machine.
type Phase string

const (
	PhaseWaitingOnRelations Phase = "WaitingOnRelations"
	PhaseWaitingOnStorage   Phase = "WaitingOnStorage"
	PhaseBlocked            Phase = "Blocked"
	PhaseProvisioning       Phase = "Provisioning"
	PhaseRunning            Phase = "Running"
)

// Waiting reports whether the phase expects progress on a later event.
func (p Phase) Waiting() bool {
	switch p {
	case PhaseWaitingOnRelations, PhaseWaitingOnStorage, PhaseProvisioning:
		return true
	}
	return false
}

// EventKind names the lifecycle event that triggered a configuration pass.
type EventKind string

const (
	EventRelationChanged EventKind = "relation-changed"
	EventStorageAttached EventKind = "storage-attached"
	EventConfigChanged   EventKind = "config-changed"
	EventUpgrade         EventKind = "upgrade-charm"
	EventPebbleReady     EventKind = "pebble-ready"
)

// Event is a lifecycle event delivered by the hosting runtime.
type Event struct {
	Kind EventKind
	// Source identifies what changed, e.g. a relation or storage name.
	Source string
}
