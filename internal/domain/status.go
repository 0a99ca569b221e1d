package domain

// RepairStatus is the lifecycle state of a repair job. Jobs only move
// forward: pending, in progress, completed, delivered. Skipping ahead is
// allowed, going back is not.
type RepairStatus string

const (
	StatusPending    RepairStatus = "pending"
	StatusInProgress RepairStatus = "in_progress"
	StatusCompleted  RepairStatus = "completed"
	StatusDelivered  RepairStatus = "delivered"
)

var statusRank = map[RepairStatus]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusDelivered:  3,
}

func (s RepairStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Setting the same status again is treated as a no-op and allowed.
func (s RepairStatus) CanTransitionTo(next RepairStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}
