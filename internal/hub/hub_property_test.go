//go:build property

package hub

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBroadcastProperties validates signal delivery and pruning across
// arbitrary subscriber counts and broadcast sequences.
func TestBroadcastProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: every draining subscriber receives one signal per broadcast
	properties.Property("draining subscribers receive one signal per broadcast", prop.ForAll(
		func(subscribers int, broadcasts int) bool {
			h := newTestHub()
			defer h.Close()

			subs := make([]*Subscription, subscribers)
			for i := range subs {
				subs[i] = h.Subscribe()
			}

			// Broadcast parks exactly one signal in each drained buffer, so
			// a non-blocking receive must always find it.
			for b := 0; b < broadcasts; b++ {
				h.Broadcast()
				for _, sub := range subs {
					select {
					case <-sub.C():
					default:
						return false
					}
				}
			}
			return h.Len() == subscribers
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 6),
	))

	// Property: a stuck subscriber is pruned only past the miss limit
	properties.Property("stuck subscriber pruned only past the miss limit", prop.ForAll(
		func(draining int, broadcasts int) bool {
			h := newTestHub()
			defer h.Close()

			subs := make([]*Subscription, draining)
			for i := range subs {
				subs[i] = h.Subscribe()
			}
			h.Subscribe() // never drained

			for b := 0; b < broadcasts; b++ {
				h.Broadcast()
				for _, sub := range subs {
					select {
					case <-sub.C():
					default:
						return false
					}
				}
			}

			// The first broadcast parks in the stuck buffer; each later one
			// is a miss.
			want := draining
			if broadcasts-1 < maxMisses {
				want++
			}
			return h.Len() == want
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 2*maxMisses),
	))

	// Property: cancelling any subset leaves the rest signalable
	properties.Property("cancelling a subset leaves the rest signalable", prop.ForAll(
		func(subscribers int, cancelMask int) bool {
			h := newTestHub()
			defer h.Close()

			subs := make([]*Subscription, subscribers)
			for i := range subs {
				subs[i] = h.Subscribe()
			}

			kept := 0
			for i, sub := range subs {
				if cancelMask&(1<<i) != 0 {
					sub.Cancel()
				} else {
					kept++
				}
			}
			if h.Len() != kept {
				return false
			}

			h.Broadcast()
			for i, sub := range subs {
				if cancelMask&(1<<i) != 0 {
					continue
				}
				select {
				case <-sub.C():
				default:
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 255),
	))

	properties.TestingRun(t)
}
