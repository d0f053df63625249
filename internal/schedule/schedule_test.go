package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New("Mars/Olympus", nil)
	assert.Error(t, err)
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s, err := New("UTC", nil)
	require.NoError(t, err)
	assert.Error(t, s.Schedule("every night", func() {}))
	assert.Equal(t, 0, s.Entries())
}

func TestScheduleReplacesEntry(t *testing.T) {
	s, err := New("Europe/Rome", nil)
	require.NoError(t, err)
	require.NoError(t, s.Schedule("0 3 * * *", func() {}))
	require.NoError(t, s.Schedule("30 4 * * *", func() {}))
	assert.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	local := s.Next().In(s.location)
	assert.Equal(t, 4, local.Hour())
	assert.Equal(t, 30, local.Minute())
}

func TestScheduledTaskRuns(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)
	var runs atomic.Int32
	require.NoError(t, s.Schedule("@every 1s", func() { runs.Add(1) }))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
