package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockSetDeduplicates(t *testing.T) {
	var s BlockSet
	assert.True(t, s.Add("intro"))
	assert.True(t, s.Add("example"))
	assert.False(t, s.Add("intro"))

	assert.Equal(t, []string{"intro", "example"}, s.Values())
	assert.Equal(t, 2, s.Len())
}

func TestBlockSetScanDropsDuplicates(t *testing.T) {
	var s BlockSet
	require.NoError(t, s.Scan([]byte(`["a","b","a","c","b"]`)))
	assert.Equal(t, []string{"a", "b", "c"}, s.Values())

	require.NoError(t, s.Scan(nil))
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.Scan(42))
}

func TestBlockSetValueIsJSONArray(t *testing.T) {
	v, err := BlockSet{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = NewBlockSet("x", "y", "x").Value()
	require.NoError(t, err)
	assert.Equal(t, `["x","y"]`, v)
}

func TestBlockSetValuesIsACopy(t *testing.T) {
	s := NewBlockSet("a")
	vals := s.Values()
	vals[0] = "mutated"
	assert.True(t, s.Contains("a"))
}

func TestBlockSetJSONInsideStruct(t *testing.T) {
	row := UserLearningProgress{CompletedBlocks: NewBlockSet("b1", "b2")}
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"completedBlocks":["b1","b2"]`)
}

func TestProgressStatus(t *testing.T) {
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusFailed.Done())
	assert.True(t, StatusPassed.Done())
	assert.True(t, StatusCompleted.Done())
}
