package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgerStub struct {
	calls     int
	retention time.Duration
	err       error
}

func (p *purgerStub) PurgeRead(_ context.Context, retention time.Duration) (int64, error) {
	p.calls++
	p.retention = retention
	return 3, p.err
}

func TestNotificationRetentionJob(t *testing.T) {
	stub := &purgerStub{}
	job := NewNotificationRetentionJob(stub, "0 3 * * *", 30)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, 30*24*time.Hour, stub.retention)

	disabled := NewNotificationRetentionJob(stub, "", 0)
	require.NoError(t, disabled.Run(context.Background()))
	assert.Equal(t, 1, stub.calls)
}

func TestScheduler_RegisterAndRunByName(t *testing.T) {
	s := NewScheduler()
	stub := &purgerStub{}

	require.NoError(t, s.Register(NewNotificationRetentionJob(stub, "0 3 * * *", 7)))
	assert.Error(t, s.Register(NewNotificationRetentionJob(stub, "0 3 * * *", 7)))

	require.NoError(t, s.RunByName(context.Background(), NotificationRetentionJobName))
	assert.Equal(t, 1, stub.calls)
	assert.Error(t, s.RunByName(context.Background(), "missing"))

	stub.err = errors.New("db down")
	assert.Error(t, s.RunByName(context.Background(), NotificationRetentionJobName))
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	err := s.Register(NewNotificationRetentionJob(&purgerStub{}, "every tuesday", 7))
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Register(NewNotificationRetentionJob(&purgerStub{}, "@every 1h", 7)))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
