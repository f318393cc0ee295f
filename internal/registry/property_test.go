package registry_test

import (
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
)

var mockNames = []string{"aiven", "halcyon", "midas", "quanta", "veilsynth"}

// namePool mixes the head name, every mock name and a few unused names.
var namePool = append([]string{"jasper", "scout", "ledger", "nova"}, mockNames...)

// TestRegistryProperties drives random create/delete sequences against a
// simple model of the DYNAMIC set and checks the visible view after every step.
func TestRegistryProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reg := newTestRegistry(t)
		dynamic := map[string]bool{}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for range steps {
			name := rapid.SampledFrom(namePool).Draw(rt, "name")
			isMock := slices.Contains(mockNames, name)

			if rapid.Bool().Draw(rt, "create") {
				res, err := reg.Create(registry.CreateRequest{Name: name, Role: "role", Stability: 0.5})
				switch {
				case name == "jasper":
					if !errors.Is(err, registry.ErrInvalidName) {
						rt.Fatalf("create %s: want ErrInvalidName, got %v", name, err)
					}
				case dynamic[name]:
					if !errors.Is(err, registry.ErrAlreadyExists) {
						rt.Fatalf("create %s: want ErrAlreadyExists, got %v", name, err)
					}
				default:
					if err != nil {
						rt.Fatalf("create %s: %v", name, err)
					}
					if res.Upgraded != isMock {
						rt.Fatalf("create %s: upgraded=%v, want %v", name, res.Upgraded, isMock)
					}
					dynamic[name] = true
				}
			} else {
				res, err := reg.Delete(name)
				switch {
				case name == "jasper", isMock && !dynamic[name]:
					if !errors.Is(err, registry.ErrForbidden) {
						rt.Fatalf("delete %s: want ErrForbidden, got %v", name, err)
					}
				case !dynamic[name]:
					if !errors.Is(err, registry.ErrNotFound) {
						rt.Fatalf("delete %s: want ErrNotFound, got %v", name, err)
					}
				default:
					if err != nil {
						rt.Fatalf("delete %s: %v", name, err)
					}
					if res.Unshadowed != isMock {
						rt.Fatalf("delete %s: unshadowed=%v, want %v", name, res.Unshadowed, isMock)
					}
					delete(dynamic, name)
				}
			}

			checkVisible(rt, reg, dynamic)
		}
	})
}

func checkVisible(rt *rapid.T, reg *registry.Registry, dynamic map[string]bool) {
	visible := reg.ListVisible()
	if len(visible) == 0 || visible[0].Tier != model.TierHead {
		rt.Fatalf("head must be listed first: %v", visible)
	}

	seen := map[string]bool{}
	for _, rec := range visible {
		if seen[rec.Name] {
			rt.Fatalf("name %s listed twice", rec.Name)
		}
		seen[rec.Name] = true
	}

	for _, name := range namePool {
		rec, err := reg.Resolve(name)
		var want model.Tier
		switch {
		case name == "jasper":
			want = model.TierHead
		case dynamic[name]:
			want = model.TierDynamic
		case slices.Contains(mockNames, name):
			want = model.TierMock
		default:
			if !errors.Is(err, registry.ErrNotFound) {
				rt.Fatalf("resolve %s: want ErrNotFound, got %v", name, err)
			}
			if seen[name] {
				rt.Fatalf("unused name %s is listed", name)
			}
			continue
		}
		if err != nil {
			rt.Fatalf("resolve %s: %v", name, err)
		}
		if rec.Tier != want {
			rt.Fatalf("resolve %s: tier %s, want %s", name, rec.Tier, want)
		}
		if !seen[name] {
			rt.Fatalf("resolvable name %s missing from the visible list", name)
		}
	}

	if got, want := len(visible), 1+len(mockNames)+countUnshadowing(dynamic); got != want {
		rt.Fatalf("visible count %d, want %d", got, want)
	}
}

// countUnshadowing counts DYNAMIC names that do not hide a MOCK record.
func countUnshadowing(dynamic map[string]bool) int {
	n := 0
	for name := range dynamic {
		if !slices.Contains(mockNames, name) {
			n++
		}
	}
	return n
}
