package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextReaction(t *testing.T) {
	tests := []struct {
		name       string
		current    ReactionKind
		requested  ReactionKind
		want       ReactionKind
		transition ReactionTransition
	}{
		{"first reaction inserts", ReactionNone, ReactionLove, ReactionLove, TransitionInsert},
		{"same kind cancels", ReactionLove, ReactionLove, ReactionNone, TransitionRemove},
		{"other kind replaces", ReactionLove, ReactionLaugh, ReactionLaugh, TransitionUpdate},
		{"celebrate over like", ReactionLike, ReactionCelebrate, ReactionCelebrate, TransitionUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, transition := NextReaction(tt.current, tt.requested)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.transition, transition)
		})
	}
}

func TestNextReaction_SequenceKeepsLastNonCancelling(t *testing.T) {
	state := ReactionNone
	for _, k := range []ReactionKind{ReactionLike, ReactionLove, ReactionLove, ReactionLaugh, ReactionCelebrate} {
		state, _ = NextReaction(state, k)
	}
	assert.Equal(t, ReactionCelebrate, state)

	state, _ = NextReaction(state, ReactionCelebrate)
	assert.Equal(t, ReactionNone, state)
}

func TestReactionKind_Valid(t *testing.T) {
	for _, k := range ReactionKinds {
		assert.True(t, k.Valid(), k)
		assert.NotEmpty(t, k.Emoji())
	}
	assert.False(t, ReactionKind("angry").Valid())
	assert.False(t, ReactionNone.Valid())
}

func TestReactionSummary_Label(t *testing.T) {
	s := ReactionSummary{Names: []string{"Mom", "Dad", "Fletcher"}, More: 2}
	assert.Equal(t, "Mom, Dad, Fletcher +2 more", s.Label())

	s = ReactionSummary{Names: []string{"Mom"}}
	assert.Equal(t, "Mom", s.Label())
}
