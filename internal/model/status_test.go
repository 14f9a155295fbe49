package model

import "testing"

func TestItemStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ItemStatus
		want     bool
	}{
		{ItemReported, ItemClaimed, true},
		{ItemReported, ItemReturned, false},
		{ItemClaimed, ItemReported, true},
		{ItemClaimed, ItemReturned, true},
		{ItemClaimed, ItemVerified, true},
		{ItemVerified, ItemReturned, true},
		{ItemVerified, ItemReported, false},
		{ItemReturned, ItemReported, false},
		{ItemReturned, ItemClaimed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestClaimStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ClaimStatus
		want     bool
	}{
		{ClaimPending, ClaimAccepted, true},
		{ClaimPending, ClaimRejected, true},
		{ClaimPending, ClaimCompleted, false},
		{ClaimAccepted, ClaimCompleted, true},
		{ClaimAccepted, ClaimPending, false},
		{ClaimRejected, ClaimAccepted, false},
		{ClaimCompleted, ClaimRejected, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if ClaimRejected.Active() {
		t.Error("rejected claim must not be active")
	}
	if !ClaimCompleted.Active() || !ClaimPending.Active() {
		t.Error("pending and completed claims occupy the item")
	}
	if ClaimCompleted.Disputable() || !ClaimAccepted.Disputable() {
		t.Error("only pending and accepted claims are disputable")
	}
}
