package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/internal/appcore"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBroker()
	a, stopA := b.Subscribe("job")
	c, stopC := b.Subscribe("job")
	other, stopOther := b.Subscribe("other")
	defer stopA()
	defer stopC()
	defer stopOther()

	b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStageProcessing})

	assert.Equal(t, appcore.JobStageProcessing, (<-a).Stage)
	assert.Equal(t, appcore.JobStageProcessing, (<-c).Stage)
	assert.Len(t, other, 0)
}

func TestLateSubscriberGetsLatest(t *testing.T) {
	b := NewBroker()
	b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStagePreparing})
	b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStageProcessing, Message: "frames"})

	ch, stop := b.Subscribe("job")
	defer stop()
	ev := <-ch
	assert.Equal(t, "frames", ev.Message)

	b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStageSucceeded})
	assert.Equal(t, appcore.JobStageSucceeded, (<-ch).Stage)
	_, ok := b.Latest("job")
	assert.False(t, ok)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch, stop := b.Subscribe("job")
	defer stop()

	for i := 0; i < subscriberBuffer*3; i++ {
		b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStageProcessing})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, stop := b.Subscribe("job")
	require.Equal(t, 1, b.Subscribers("job"))

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("job"))

	b.Publish(appcore.JobEvent{JobID: "job", Stage: appcore.JobStageProcessing})
}
