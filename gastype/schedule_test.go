package gastype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduleReplaceRequiresStrictIncrease(t *testing.T) {
	v0 := Default()

	_, err := Replace(v0, v0)
	require.True(t, errors.Is(err, ErrScheduleStaleOrEqual))

	lower := v0
	lower.Version = v0.Version // equal, still rejected above

	v1 := v0
	v1.Version = 1
	got, err := Replace(v0, v1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), got.Version)

	_, err = Replace(got, v0)
	require.True(t, errors.Is(err, ErrScheduleStaleOrEqual))
}

func TestDefaultScheduleMatchesNormativeValues(t *testing.T) {
	s := Default()
	require.Equal(t, uint64(135), s.CallBase)
	require.Equal(t, uint64(175), s.InstantiateBase)
	require.Equal(t, uint32(4), s.MaxEventTopics)
	require.Equal(t, uint32(32), s.MaxDepth)
	require.Equal(t, uint32(16384), s.MaxValueSize)
	require.False(t, s.EnablePrintln)
}
