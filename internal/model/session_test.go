package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionState(t *testing.T) {
	s := NewSessionState("import-2026", "in.geojson", []string{"a/1", "a/2", "a/3"})

	assert.Equal(t, 3, s.Total)
	require.Len(t, s.Items, 3)
	for i, it := range s.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, ItemPending, it.Status)
	}
	assert.Equal(t, 0, s.Processed())
	assert.False(t, s.Complete())
}

func TestMarkItemTransitions(t *testing.T) {
	s := NewSessionState("import-2026", "in.geojson", []string{"a/1", "a/2"})

	require.NoError(t, s.MarkItem(0, ItemSucceeded, "created", ""))
	assert.Equal(t, ItemSucceeded, s.Items[0].Status)
	assert.Equal(t, 1, s.Processed())

	// Terminal items never revert or re-mark.
	err := s.MarkItem(0, ItemFailed, "", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already succeeded")

	// Pending is not a valid target.
	err = s.MarkItem(1, ItemPending, "", "")
	require.Error(t, err)

	// Out of range.
	require.Error(t, s.MarkItem(5, ItemSkipped, "", ""))
	require.Error(t, s.MarkItem(-1, ItemSkipped, "", ""))

	require.NoError(t, s.MarkItem(1, ItemFailed, "", "submit rejected"))
	assert.True(t, s.Complete())

	counts := s.Counts()
	assert.Equal(t, 1, counts[ItemSucceeded])
	assert.Equal(t, 1, counts[ItemFailed])
	assert.Equal(t, 0, counts[ItemPending])
}

func TestProcessedMonotonic(t *testing.T) {
	s := NewSessionState("s", "in.json", []string{"x/1", "x/2", "x/3", "x/4"})

	prev := 0
	for i, status := range []ItemStatus{ItemSucceeded, ItemSkipped, ItemFailed, ItemSucceeded} {
		require.NoError(t, s.MarkItem(i, status, "", ""))
		cur := s.Processed()
		assert.Greater(t, cur, prev)
		prev = cur
	}
}
