package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/readaloud/internal/core"
)

func TestNewStartsOnFirstPage(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Page())
	assert.Equal(t, 3, s.PageCount())
	assert.False(t, s.AutoAdvance())

	_, err = New(0)
	assert.Error(t, err)
}

func TestPreviousIsNoopOnFirstPage(t *testing.T) {
	s, _ := New(3)
	assert.False(t, s.Previous())
	assert.Equal(t, 1, s.Page())

	require.NoError(t, s.JumpTo(3))
	assert.True(t, s.Previous())
	assert.Equal(t, 2, s.Page())
}

func TestNextSetsAutoAdvanceOnlyWhenAsked(t *testing.T) {
	s, _ := New(3)

	assert.True(t, s.Next(false))
	assert.Equal(t, 2, s.Page())
	assert.False(t, s.AutoAdvance())

	assert.True(t, s.Next(true))
	assert.Equal(t, 3, s.Page())
	assert.True(t, s.AutoAdvance())
}

func TestNextOnLastPageChangesNothing(t *testing.T) {
	s, _ := New(2)
	require.NoError(t, s.JumpTo(2))

	assert.False(t, s.Next(true))
	assert.Equal(t, 2, s.Page())
	assert.False(t, s.AutoAdvance())

	s.SetAutoAdvance(true)
	assert.False(t, s.Next(false))
	assert.True(t, s.AutoAdvance())
}

func TestJumpTo(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		want    int
		wantErr bool
	}{
		{name: "first", target: 1, want: 1},
		{name: "last", target: 5, want: 5},
		{name: "zero", target: 0, want: 3, wantErr: true},
		{name: "past end", target: 6, want: 3, wantErr: true},
		{name: "negative", target: -2, want: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := New(5)
			require.NoError(t, s.JumpTo(3))
			s.SetAutoAdvance(true)

			err := s.JumpTo(tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, s.Page())
			assert.True(t, s.AutoAdvance(), "jump leaves auto-advance alone")
		})
	}
}

func TestPageStaysInBounds(t *testing.T) {
	s, _ := New(4)
	ops := []func(){
		func() { s.Next(true) }, func() { s.Previous() }, func() { s.Next(false) },
		func() { s.Next(false) }, func() { s.Next(false) }, func() { s.Next(false) },
		func() { _ = s.JumpTo(9) }, func() { s.Previous() }, func() { s.Previous() },
		func() { s.Previous() }, func() { s.Previous() }, func() { _ = s.JumpTo(0) },
	}
	for _, op := range ops {
		op()
		assert.GreaterOrEqual(t, s.Page(), 1)
		assert.LessOrEqual(t, s.Page(), s.PageCount())
	}
}
