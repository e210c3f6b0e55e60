package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{TicketPending, TicketValid, true},
		{TicketPending, TicketCanceled, true},
		{TicketPending, TicketUsed, false},
		{TicketPending, TicketRefunded, false},

		{TicketValid, TicketUsed, true},
		{TicketValid, TicketRefunded, true},
		{TicketValid, TicketCanceled, true},
		{TicketValid, TicketPending, false},

		{TicketUsed, TicketRefunded, false},
		{TicketUsed, TicketValid, false},
		{TicketUsed, TicketCanceled, false},

		{TicketCanceled, TicketValid, false},
		{TicketCanceled, TicketPending, false},

		{TicketRefunded, TicketValid, false},
		{TicketRefunded, TicketRefunded, false},

		{TicketValid, TicketValid, false},
	}

	for _, c := range cases {
		got := c.from.CanTransitionTo(c.to)
		assert.Equal(t, c.allowed, got, "%s -> %s", c.from, c.to)
	}
}

func TestTicketStatusTerminal(t *testing.T) {
	assert.False(t, TicketPending.IsTerminal())
	assert.False(t, TicketValid.IsTerminal())
	assert.True(t, TicketUsed.IsTerminal())
	assert.True(t, TicketCanceled.IsTerminal())
	assert.True(t, TicketRefunded.IsTerminal())
}

func TestTicketStatusIsValid(t *testing.T) {
	for _, s := range []TicketStatus{TicketPending, TicketValid, TicketUsed, TicketCanceled, TicketRefunded} {
		assert.True(t, s.IsValid(), "%s", s)
	}
	assert.False(t, TicketStatus("paid").IsValid())
	assert.False(t, TicketStatus("").IsValid())
}

func TestEventPurchasable(t *testing.T) {
	assert.True(t, (&Event{Status: EventActive}).Purchasable())
	assert.False(t, (&Event{Status: EventArchived}).Purchasable())
	assert.False(t, (&Event{Status: EventDeleted}).Purchasable())
	assert.False(t, (&Event{}).Purchasable())
}
