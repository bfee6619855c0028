package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"eventkernel/bus"
	"eventkernel/kernel"
	"eventkernel/services/config"
	"eventkernel/types"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func TestHeartbeatEveryNTicks(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("heartbeat")
	driver := b.NewConnection("test")
	defer driver.Disconnect()

	// Retained config is picked up on subscribe.
	driver.Publish(driver.NewMessage(config.Topic("heartbeat"), config.HeartbeatConfig{EveryTicks: 3}, true))
	beats := driver.Subscribe(TopicHeartbeat)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(nil)
	require.NoError(t, s.Start(ctx, conn))

	// Wait until the service has subscribed to ticks; tick 0 always beats.
	require.Eventually(t, func() bool {
		driver.Publish(driver.NewMessage(kernel.TopicTick(), types.Tick{Count: 0}, false))
		select {
		case <-beats.Channel():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	for i := uint64(1); i <= 7; i++ {
		driver.Publish(driver.NewMessage(kernel.TopicTick(), types.Tick{Count: i}, false))
	}

	var got []uint64
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case m := <-beats.Channel():
			if c := m.Payload.(types.Tick).Count; c != 0 {
				got = append(got, c)
			}
		case <-timeout:
			t.Fatalf("heartbeats so far: %v", got)
		}
	}
	require.Equal(t, []uint64{3, 6}, got)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}
