package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	routertest "github.com/arloliu/peerrouter/testing"
	"github.com/arloliu/peerrouter/types"
)

func testAssignment() types.Assignment {
	var key, peer types.Key
	key[0] = 0xaa
	peer[0] = 0x01

	return types.Assignment{Key: key, Peers: []types.Peer{{Key: peer, Location: "eu-west"}}}
}

func TestPublisher(t *testing.T) {
	_, nc := routertest.StartEmbeddedNATS(t)
	ctx := t.Context()

	events := make(chan Event, 4)
	sub, err := Subscribe(ctx, nc, "test.assigned", func(ev Event) { events <- ev })
	require.NoError(t, err)
	require.True(t, sub.IsValid())
	require.NoError(t, nc.Flush())

	pub := NewPublisher(nc, "test.assigned.", routertest.NewTestLogger(t))
	require.Equal(t, "test.assigned", pub.Subject())

	a := testAssignment()
	pub.NotifyAssigned(a)

	select {
	case ev := <-events:
		require.Equal(t, a, ev.Assignment())
		require.False(t, ev.AssignedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("assignment event not received")
	}
}

func TestPublisher_SubjectPerKey(t *testing.T) {
	_, nc := routertest.StartEmbeddedNATS(t)
	a := testAssignment()

	sub, err := nc.SubscribeSync(DefaultSubject + "." + a.Key.String())
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	NewPublisher(nc, "", nil).NotifyAssigned(a)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	require.Contains(t, string(msg.Data), a.Key.String())
}

func TestPublisher_ClosedConnection(t *testing.T) {
	_, nc := routertest.StartEmbeddedNATS(t)
	nc.Close()

	require.NotPanics(t, func() {
		NewPublisher(nc, "", nil).NotifyAssigned(testAssignment())
	})
}

func TestSubscribe(t *testing.T) {
	_, nc := routertest.StartEmbeddedNATS(t)

	t.Run("requires a subject", func(t *testing.T) {
		_, err := Subscribe(t.Context(), nc, "", func(Event) {})
		require.ErrorIs(t, err, ErrNoSubject)
	})

	t.Run("skips malformed messages", func(t *testing.T) {
		events := make(chan Event, 2)
		_, err := Subscribe(t.Context(), nc, "bad", func(ev Event) { events <- ev })
		require.NoError(t, err)
		require.NoError(t, nc.Publish("bad.x", []byte("not json")))
		require.NoError(t, nc.Flush())

		select {
		case <-events:
			t.Fatal("malformed message delivered")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestNopAndFunc(t *testing.T) {
	require.NotPanics(t, func() { Nop{}.NotifyAssigned(testAssignment()) })

	var got types.Assignment
	Func(func(a types.Assignment) { got = a }).NotifyAssigned(testAssignment())
	require.Equal(t, testAssignment(), got)
}

func TestMulti(t *testing.T) {
	var first, second []types.Assignment
	m := Multi{
		Func(func(a types.Assignment) {
			a.Peers[0].Location = "mutated"
			first = append(first, a)
		}),
		Func(func(a types.Assignment) { second = append(second, a) }),
	}

	m.NotifyAssigned(testAssignment())

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	// Each notifier gets its own copy
	require.Equal(t, testAssignment(), second[0])

	require.NotPanics(t, func() { Multi(nil).NotifyAssigned(testAssignment()) })
}
