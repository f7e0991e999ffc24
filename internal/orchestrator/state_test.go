package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateAwaitingFirstResponse, StateTextReply, true},
		{StateAwaitingFirstResponse, StateFunctionRequested, true},
		{StateAwaitingFirstResponse, StateDispatching, false},
		{StateFunctionRequested, StateDispatching, true},
		{StateDispatching, StateAwaitingFollowupResponse, true},
		{StateAwaitingFollowupResponse, StateTextReply, true},
		{StateAwaitingFollowupResponse, StateFunctionRequested, false},
		{StateAwaitingFollowupResponse, StateDispatching, false},
		{StateTextReply, StateFunctionRequested, false},
		{StateFailed, StateTextReply, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestMachine_RejectsIllegalTransition(t *testing.T) {
	m := newMachine()
	require.NoError(t, m.to(StateFunctionRequested))
	require.NoError(t, m.to(StateDispatching))
	require.NoError(t, m.to(StateAwaitingFollowupResponse))

	err := m.to(StateFunctionRequested)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateAwaitingFollowupResponse, m.current())

	// the follow-up phase cannot fail the turn either
	m.fail()
	assert.Equal(t, StateAwaitingFollowupResponse, m.current())

	require.NoError(t, m.to(StateTextReply))
	assert.True(t, m.current().Terminal())
}

func TestMachine_StatesIsACopy(t *testing.T) {
	m := newMachine()
	s := m.states()
	s[0] = StateFailed
	assert.Equal(t, StateAwaitingFirstResponse, m.current())
}

func TestHumanizeFunctionName(t *testing.T) {
	tests := map[string]string{
		"generateMealPlan":       "generate meal plan",
		"getMoodMeal":            "get mood meal",
		"adjustPlanForLifestyle": "adjust plan for lifestyle",
		"log":                    "log",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HumanizeFunctionName(in), in)
	}
}

func TestBuildSystemPrompt_EmptyPersona(t *testing.T) {
	prompt := BuildSystemPrompt("  ", catalog.Default(), types.CoachContext{})
	assert.True(t, len(prompt) > 0)
	assert.Contains(t, prompt, "**Available Functions** (catalog 2024-06)")
	assert.NotContains(t, prompt, "Lina")
}
