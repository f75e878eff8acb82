package subscription_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/subscription"
)

type fakeSender struct {
	connected bool
	sent      []protocol.Outbound
}

func (f *fakeSender) IsConnected() bool { return f.connected }

func (f *fakeSender) Send(msg protocol.Outbound) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestRegistry_NetEffect(t *testing.T) {
	topics := []string{"cpu", "memory", "errors", "active_users", "latency"}
	rnd := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		r := subscription.NewRegistry()
		want := map[string]bool{}

		for op := 0; op < 30; op++ {
			var batch []string
			for i := rnd.Intn(3) + 1; i > 0; i-- {
				batch = append(batch, topics[rnd.Intn(len(topics))])
			}

			if rnd.Intn(2) == 0 {
				r.Subscribe(batch...)
				for _, tp := range batch {
					want[tp] = true
				}
			} else {
				r.Unsubscribe(batch...)
				for _, tp := range batch {
					delete(want, tp)
				}
			}
		}

		expected := make([]string, 0, len(want))
		for tp := range want {
			expected = append(expected, tp)
		}
		sort.Strings(expected)

		require.Equal(t, expected, r.Topics(), "run %d", run)
	}
}

func TestRegistry_SendsOnlyWhenConnected(t *testing.T) {
	s := &fakeSender{}
	r := subscription.NewRegistry()
	r.Attach(s)

	r.Subscribe("cpu")
	assert.Empty(t, s.sent, "nothing is sent while disconnected")
	assert.Equal(t, []string{"cpu"}, r.Topics(), "but the registry is updated immediately")

	s.connected = true
	r.Subscribe("cpu", "memory", "memory")
	r.Unsubscribe("latency")
	r.Unsubscribe("cpu")

	assert.Equal(t, []protocol.Outbound{
		protocol.Subscribe{Metrics: []string{"memory"}},
		protocol.Unsubscribe{Metrics: []string{"cpu"}},
	}, s.sent)
}

func TestRegistry_DuplicateSubscribeCollapses(t *testing.T) {
	r := subscription.NewRegistry()

	assert.Equal(t, []string{"cpu"}, r.Subscribe("cpu", "cpu"))
	assert.Empty(t, r.Subscribe("cpu"))
	assert.Equal(t, []string{"cpu"}, r.Topics())
}

func TestRegistry_ReplayAndConfirmations(t *testing.T) {
	r := subscription.NewRegistry()
	assert.Nil(t, r.Replay(), "empty registry has nothing to replay")

	r.Subscribe("memory", "cpu")
	r.Confirm("cpu", "unknown")
	assert.Equal(t, []string{"cpu"}, r.Confirmed())

	assert.Equal(t, protocol.Subscribe{Metrics: []string{"cpu", "memory"}}, r.Replay())
	assert.Empty(t, r.Confirmed(), "a replay needs fresh confirmations")

	r.Confirm("memory")
	r.Unsubscribe("memory")
	assert.Empty(t, r.Confirmed())
	assert.True(t, r.Has("cpu"))
	assert.False(t, r.Has("memory"))
}
