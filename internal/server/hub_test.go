package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client without a transport connection; deliveries
// are observed by draining its send channel directly.
func newTestClient(hub *Hub) *Client {
	return NewClient(nil, hub, "127.0.0.1:12345", 0, nil)
}

func drain(c *Client) [][]byte {
	var got [][]byte
	for {
		select {
		case payload := <-c.send:
			got = append(got, payload)
		default:
			return got
		}
	}
}

func TestHubRegisterAndLen(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Len())

	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.Len())

	hub.Unregister(a)
	assert.Equal(t, 1, hub.Len())
}

func TestHubDoubleUnregisterIsHarmless(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)

	hub.Unregister(a)
	require.NotPanics(t, func() { hub.Unregister(a) })

	// The surviving member still receives broadcasts.
	hub.Broadcast([]byte("still here"), nil)
	assert.Len(t, drain(b), 1)
	assert.Equal(t, 1, hub.Len())
}

func TestHubBroadcastDeliversExactlyOncePerMember(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(hub)
		hub.Register(clients[i])
	}

	hub.Broadcast([]byte(`{"sender":"alice","message":"hi"}`), nil)

	for i, c := range clients {
		got := drain(c)
		require.Len(t, got, 1, "client %d should receive exactly one copy", i)
		assert.Equal(t, `{"sender":"alice","message":"hi"}`, string(got[0]))
	}
}

func TestHubBroadcastHonorsExclusion(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast([]byte("for b only"), a)

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestHubBroadcastSkipsUnregisteredClient(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)

	hub.Broadcast([]byte("hello"), nil)

	assert.Len(t, drain(b), 1)
}

func TestHubBroadcastIsolatesFailedClient(t *testing.T) {
	hub := NewHub()
	stuck := newTestClient(hub)
	healthy := newTestClient(hub)
	hub.Register(stuck)
	hub.Register(healthy)

	// Fill the stuck client's buffer so the next delivery fails.
	for i := 0; i < cap(stuck.send); i++ {
		stuck.send <- []byte("filler")
	}

	hub.Broadcast([]byte("payload"), nil)

	// The healthy client is unaffected and the stuck one has been removed.
	assert.Len(t, drain(healthy), 1)
	assert.Equal(t, 1, hub.Len())
	assert.NoError(t, hub.SendTo(healthy, []byte("follow-up")))
	assert.ErrorIs(t, hub.SendTo(stuck, []byte("too late")), ErrSendFailed)
}

func TestHubSendTo(t *testing.T) {
	hub := NewHub()
	member := newTestClient(hub)
	stranger := newTestClient(hub)
	hub.Register(member)

	require.NoError(t, hub.SendTo(member, []byte("direct")))
	got := drain(member)
	require.Len(t, got, 1)
	assert.Equal(t, "direct", string(got[0]))

	assert.ErrorIs(t, hub.SendTo(stranger, []byte("lost")), ErrSendFailed)
}

func TestHubRefusesRegistrationAfterShutdown(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.Shutdown(time.Second))

	c := newTestClient(hub)
	assert.False(t, hub.Register(c))
	assert.Equal(t, 0, hub.Len())
}

func TestHubConcurrentMembershipSettles(t *testing.T) {
	hub := NewHub()

	const joiners = 20
	clients := make([]*Client, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		clients[i] = newTestClient(hub)
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Register(c)
		}(clients[i])
	}
	wg.Wait()
	assert.Equal(t, joiners, hub.Len())

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Unregister(c)
		}(clients[i])
	}
	wg.Wait()
	assert.Equal(t, joiners-5, hub.Len())
}

func TestHubBroadcastDuringMembershipChanges(t *testing.T) {
	hub := NewHub()

	stable := newTestClient(hub)
	hub.Register(stable)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c := newTestClient(hub)
			hub.Register(c)
			hub.Unregister(c)
		}(i)
		go func(i int) {
			defer wg.Done()
			hub.Broadcast([]byte(fmt.Sprintf("msg %d", i)), nil)
		}(i)
	}
	wg.Wait()

	// The stable member saw every broadcast exactly once.
	assert.Len(t, drain(stable), 10)
}
