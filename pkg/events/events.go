// Package events provides the system event bus capability the Recovery
// Manager and its subsystem owners communicate over. Event kind is the
// only boundary contract; payloads beyond the kind's own fields are
// opaque to the bus itself.
package events

import "github.com/google/uuid"

// Kind identifies the variant of SystemEvent.
type Kind string

const (
	// KindProviderRestart asks a subsystem owner to restart a provider.
	KindProviderRestart Kind = "provider_restart"
	// KindSubsystemHealthCheck asks a subsystem to re-examine its health.
	KindSubsystemHealthCheck Kind = "subsystem_health_check"
	// KindRespawn asks the process itself to be respawned.
	KindRespawn Kind = "respawn"
)

// SystemEvent is the single event type carried on the bus. Only Kind and
// the field(s) relevant to it are populated; the others are zero values.
// ID is unique per event so a subscriber logging or deduplicating events
// across a fan-out bus has a stable handle independent of payload
// content.
type SystemEvent struct {
	ID   string
	Kind Kind

	// Populated for KindProviderRestart.
	ProviderType string
	ProviderID   string

	// Populated for KindSubsystemHealthCheck.
	SubsystemID string
}

// ProviderRestart builds a KindProviderRestart event.
func ProviderRestart(providerType, providerID string) SystemEvent {
	return SystemEvent{ID: uuid.NewString(), Kind: KindProviderRestart, ProviderType: providerType, ProviderID: providerID}
}

// SubsystemHealthCheck builds a KindSubsystemHealthCheck event.
func SubsystemHealthCheck(subsystemID string) SystemEvent {
	return SystemEvent{ID: uuid.NewString(), Kind: KindSubsystemHealthCheck, SubsystemID: subsystemID}
}

// Respawn builds a KindRespawn event.
func Respawn() SystemEvent {
	return SystemEvent{ID: uuid.NewString(), Kind: KindRespawn}
}
