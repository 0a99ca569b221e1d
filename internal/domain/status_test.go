package domain

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to RepairStatus
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusDelivered, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusDelivered, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusDelivered, StatusCompleted, false},
		{StatusDelivered, StatusPending, false},
		{StatusPending, StatusPending, true},
		{StatusDelivered, StatusDelivered, true},
		{StatusPending, RepairStatus("archived"), false},
		{RepairStatus(""), StatusPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Fatalf("transition %s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []RepairStatus{StatusPending, StatusInProgress, StatusCompleted, StatusDelivered} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if RepairStatus("done").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}
