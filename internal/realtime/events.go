package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Domain event names pushed to subscribed connections
const (
	EventFleetCreated = "FleetCreated"
	EventFleetUpdated = "FleetUpdated"
	EventFleetDeleted = "FleetDeleted"

	EventVehicleCreated = "VehicleCreated"
	EventVehicleUpdated = "VehicleUpdated"
	EventVehicleDeleted = "VehicleDeleted"

	EventTelemetryRecorded = "TelemetryRecorded"
)

// Envelope wraps every pushed event. ID and OccurredAt let clients dedup:
// vehicle events are delivered to both the fleet and the owner group, so a
// connection subscribed to both receives the same envelope twice.
type Envelope struct {
	ID         uuid.UUID `json:"id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// NewEnvelope stamps a fresh event id and time
func NewEnvelope(event string, payload any) Envelope {
	return Envelope{
		ID:         uuid.New(),
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Group key builders. Groups are named subscription channels keyed by the
// tenant hierarchy: owner, fleet, vehicle.
func GroupOwner(ownerID uuid.UUID) string {
	return "owner-" + ownerID.String()
}

func GroupFleet(fleetID uuid.UUID) string {
	return "fleet-" + fleetID.String()
}

func GroupVehicle(vehicleID uuid.UUID) string {
	return "vehicle-" + vehicleID.String()
}
