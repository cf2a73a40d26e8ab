package rtmsg_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preesm/spider2-sub007/rtmsg"
)

func TestJobConstraint_NoConstraintSentinel(t *testing.T) {
	c := rtmsg.JobConstraint{RunnerIx: rtmsg.NoWait, JobIx: rtmsg.NoWait}
	assert.True(t, c.NoConstraint(), "want NoConstraint true for the sentinel pair")

	real := rtmsg.JobConstraint{RunnerIx: 1, JobIx: 4}
	assert.False(t, real.NoConstraint(), "want NoConstraint false for a real constraint")
}

func TestKernelError_UnwrapsUnderlyingError(t *testing.T) {
	base := errors.New("segfault")
	ke := &rtmsg.KernelError{JobIx: 3, RunnerIx: 1, Err: base}
	assert.ErrorIs(t, ke, base, "want errors.Is to see through KernelError to the underlying error")
}

func TestChannelCommunicator_PreservesPerRunnerOrder(t *testing.T) {
	c := rtmsg.NewChannelCommunicator(8, 8)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, c.SendJob(0, rtmsg.JobMessage{Ix: i}))
	}
	q := c.JobQueue(0)
	for i := uint32(0); i < 5; i++ {
		got := <-q
		assert.Equalf(t, i, got.Ix, "job %d out of order", i)
	}
}

func TestChannelCommunicator_NotifyRoundTrips(t *testing.T) {
	c := rtmsg.NewChannelCommunicator(8, 8)
	want := rtmsg.Notification{Parameter: &rtmsg.ParameterMessage{SetterVertexIx: 2, Values: []int64{7}}}
	require.NoError(t, c.Notify(want))

	got, err := c.RecvNotification()
	require.NoError(t, err)
	require.NotNil(t, got.Parameter)
	assert.Equal(t, 2, got.Parameter.SetterVertexIx)
	assert.Equal(t, int64(7), got.Parameter.Values[0])
}

func TestChannelCommunicator_SendAfterCloseFails(t *testing.T) {
	c := rtmsg.NewChannelCommunicator(1, 1)
	c.Close()
	err := c.SendJob(0, rtmsg.JobMessage{})
	assert.ErrorIs(t, err, rtmsg.ErrClosed)
}

func TestChannelCommunicator_DrainsBufferedNotificationsAfterClose(t *testing.T) {
	c := rtmsg.NewChannelCommunicator(1, 1)
	require.NoError(t, c.Notify(rtmsg.Notification{Trace: &rtmsg.TraceMessage{JobIx: 1}}))
	c.Close()

	got, err := c.RecvNotification()
	require.NoError(t, err, "draining a buffered notification should still succeed after close")
	require.NotNil(t, got.Trace)
	assert.Equal(t, uint32(1), got.Trace.JobIx)

	_, err = c.RecvNotification()
	assert.ErrorIs(t, err, rtmsg.ErrClosed, "want ErrClosed once drained")
}
