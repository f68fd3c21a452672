package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type pingEvent struct{ N int }
type pongEvent struct{ N int }

func TestPublishSynchronousOrder(t *testing.T) {
	b := NewBus()

	var got []string
	Subscribe(b, func(ev pingEvent) {
		got = append(got, "first")
	})
	Subscribe(b, func(ev pingEvent) {
		got = append(got, "second")
	})

	Publish(b, pingEvent{N: 1})
	require.Equal(t, []string{"first", "second"}, got,
		"handlers run in subscription order on the caller's stack")
}

func TestPublishIsTyped(t *testing.T) {
	b := NewBus()

	var pings, pongs int
	Subscribe(b, func(pingEvent) { pings++ })
	Subscribe(b, func(pongEvent) { pongs++ })

	Publish(b, pingEvent{})
	Publish(b, pingEvent{})
	Publish(b, pongEvent{})
	require.Equal(t, 2, pings)
	require.Equal(t, 1, pongs)
}

func TestEmitDeliversNextSwap(t *testing.T) {
	b := NewBus()

	var got []int
	Subscribe(b, func(ev pingEvent) {
		got = append(got, ev.N)
	})

	Emit(b, pingEvent{N: 1})
	Emit(b, pingEvent{N: 2})
	b.DispatchAll()
	require.Empty(t, got, "emitted events are invisible before the swap")

	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []int{1, 2}, got)

	// A second swap must not replay the drained buffer.
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []int{1, 2}, got)
}

func TestEmitDuringDispatchLandsNextTick(t *testing.T) {
	b := NewBus()

	var got []int
	Subscribe(b, func(ev pingEvent) {
		got = append(got, ev.N)
		if ev.N < 3 {
			Emit(b, pingEvent{N: ev.N + 1})
		}
	})

	Emit(b, pingEvent{N: 1})
	for tick := 0; tick < 3; tick++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	require.Equal(t, []int{1, 2, 3}, got,
		"each re-emit surfaces exactly one tick later")
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewBus()
	Publish(b, pingEvent{N: 7}) // must not panic
	Emit(b, pongEvent{N: 7})
	b.SwapBuffers()
	b.DispatchAll()
}
