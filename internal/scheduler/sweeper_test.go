package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := NewSweeper("every now and then", &countingSweeper{}, log)
	require.Error(t, err)
}

func TestRunOnceLogsResult(t *testing.T) {
	log, hook := test.NewNullLogger()
	target := &countingSweeper{n: 4}
	s, err := NewSweeper("@every 1h", target, log)
	require.NoError(t, err)

	s.RunOnce()

	assert.EqualValues(t, 1, target.calls.Load())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.EqualValues(t, 4, entry.Data["deleted"])
	assert.Equal(t, "session_sweep", entry.Data["job"])
}

func TestRunOnceLogsFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	s, err := NewSweeper("@every 1h", &countingSweeper{err: errors.New("db down")}, log)
	require.NoError(t, err)

	s.RunOnce()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "session sweep failed", entry.Message)
}

func TestScheduleFires(t *testing.T) {
	log, _ := test.NewNullLogger()
	target := &countingSweeper{}
	s, err := NewSweeper("@every 1s", target, log)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return target.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
