package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	testCases := []struct {
		transition Transition
		from       Status
		to         Status
	}{
		{Select, StatusPending, StatusScheduled},
		{Decline, StatusPending, StatusCancelled},
		{Lapse, StatusPending, StatusCancelled},
		{Complete, StatusScheduled, StatusCompleted},
	}

	all := []Status{StatusPending, StatusScheduled, StatusCancelled, StatusCompleted}

	for _, tc := range testCases {
		t.Run(tc.transition.Name(), func(t *testing.T) {
			assert.Equal(t, tc.from, tc.transition.From())
			assert.Equal(t, tc.to, tc.transition.To())
			for _, s := range all {
				assert.Equal(t, s == tc.from, tc.transition.Allowed(s), "from %s", s)
			}
		})
	}
}

func TestTransition_ZeroValueNeverAllowed(t *testing.T) {
	var zero Transition
	assert.False(t, zero.Allowed(""))
	assert.False(t, zero.Allowed(StatusPending))
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, tr := range []Transition{Select, Decline, Lapse, Complete} {
		assert.False(t, tr.From().Terminal(), tr.Name())
	}
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusScheduled.IsValid())
	assert.False(t, Status("confirmed").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestOnlySelectRecordsChosenSlot(t *testing.T) {
	assert.True(t, Select.SetsChosenSlot())
	assert.False(t, Decline.SetsChosenSlot())
	assert.False(t, Lapse.SetsChosenSlot())
	assert.False(t, Complete.SetsChosenSlot())
}
