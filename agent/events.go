package agent

// Event is a terminal event that ends an episode.
type Event int

const (
	EventNone Event = iota
	EventCollisionWithWall
	EventEntryToTargetZone
	EventStepLimit
)

// Contact tags delivered by the physics collaborator.
const (
	TagWall        = "Wall"
	TagParkingSpot = "ParkingSpot"
)

func (e Event) String() string {
	switch e {
	case EventCollisionWithWall:
		return "collision"
	case EventEntryToTargetZone:
		return "parked"
	case EventStepLimit:
		return "step_limit"
	default:
		return "none"
	}
}

// EventForTag maps a contact tag to its terminal event.
func EventForTag(tag string) (Event, bool) {
	switch tag {
	case TagWall:
		return EventCollisionWithWall, true
	case TagParkingSpot:
		return EventEntryToTargetZone, true
	}
	return EventNone, false
}
