package uxsimpp

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

func TestRouteSearchAllAgainstGonum(t *testing.T) {
	const nsize = 30
	rng := rand.New(rand.NewSource(3))

	adj := make([][]float64, nsize)
	for i := range adj {
		adj[i] = make([]float64, nsize)
	}
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i := 0; i < nsize; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < nsize; i++ {
		for j := 0; j < nsize; j++ {
			if i == j {
				continue
			}
			if rng.Float64() < 0.15 {
				weight := 1.0 + 9.0*rng.Float64()
				adj[i][j] = weight
				g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), weight))
			}
		}
	}

	dist, nextHop := routeSearchAll(adj, 0.0)
	oracle := path.DijkstraAllPaths(g)

	for i := 0; i < nsize; i++ {
		for j := 0; j < nsize; j++ {
			want := oracle.Weight(int64(i), int64(j))
			got := dist[i][j]
			if math.IsInf(want, 1) {
				if got < 1e14 {
					t.Errorf("dist[%d][%d] must be unreachable, but got %f", i, j, got)
				}
				if nextHop[i][j] != -1 {
					t.Errorf("nextHop[%d][%d] must be -1 for unreachable pair, but got %d", i, j, nextHop[i][j])
				}
				continue
			}
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("dist[%d][%d] must be %f, but got %f", i, j, want, got)
			}
		}
	}

	// The next hop must be an existing edge lying on a shortest path.
	for i := 0; i < nsize; i++ {
		if nextHop[i][i] != i {
			t.Errorf("Self hop of %d must store itself, but got %d", i, nextHop[i][i])
		}
		for j := 0; j < nsize; j++ {
			if i == j || dist[i][j] >= 1e14 {
				continue
			}
			hop := nextHop[i][j]
			if hop < 0 || adj[i][hop] <= 0.0 {
				t.Fatalf("nextHop[%d][%d]=%d is not a neighbour", i, j, hop)
			}
			rest := dist[hop][j]
			if hop == j {
				rest = 0.0
			}
			if math.Abs(adj[i][hop]+rest-dist[i][j]) > 1e-9 {
				t.Errorf("nextHop[%d][%d]=%d does not lie on a shortest path", i, j, hop)
			}
		}
	}
}

func buildDiamondWorld(t *testing.T) *World {
	t.Helper()
	w := newTestWorld(4000)
	AddNode(w, "orig", 0, 0, nil, 0)
	AddNode(w, "mid1", 0, 2, nil, 0)
	AddNode(w, "mid2", 1, 1, nil, 0)
	AddNode(w, "dest", 2, 1, nil, 0)
	links := [][3]string{
		{"link1a", "orig", "mid1"},
		{"link1b", "mid1", "dest"},
		{"link2a", "orig", "mid2"},
		{"link2b", "mid2", "dest"},
	}
	lengths := []float64{2000, 3000, 1000, 1500}
	for i, def := range links {
		if _, err := AddLink(w, def[0], def[1], def[2], 10, 0.2, lengths[i], 1, -1.0, nil); err != nil {
			t.Fatalf("AddLink failed: %v", err)
		}
	}
	return w
}

func TestDUOSeedsShortestPathOnFirstUpdate(t *testing.T) {
	w := buildDiamondWorld(t)
	w.InitializeAdjMatrix()

	w.RouteDist, w.RouteNext = routeSearchAll(w.AdjMatTime, 0.0)
	w.routeChoiceDUO()

	dest, _ := w.GetNode("dest")
	link2a, _ := w.GetLink("link2a")
	link1a, _ := w.GetLink("link1a")
	// First update runs with full weight regardless of DuoUpdateWeight.
	if w.RoutePreference[dest.ID][link2a] != 1.0 {
		t.Errorf("Shortest-path link must be seeded to 1, but got %f", w.RoutePreference[dest.ID][link2a])
	}
	if w.RoutePreference[dest.ID][link1a] != 0.0 {
		t.Errorf("Off-path link must be seeded to 0, but got %f", w.RoutePreference[dest.ID][link1a])
	}
}

func TestDUOIdempotentAtFullWeight(t *testing.T) {
	w := buildDiamondWorld(t)
	w.DuoUpdateWeight = 1.0
	w.InitializeAdjMatrix()

	w.RouteDist, w.RouteNext = routeSearchAll(w.AdjMatTime, 0.0)
	w.routeChoiceDUO()

	snapshot := make([]map[*Link]float64, len(w.RoutePreference))
	for k := range w.RoutePreference {
		snapshot[k] = make(map[*Link]float64, len(w.RoutePreference[k]))
		for ln, pref := range w.RoutePreference[k] {
			snapshot[k][ln] = pref
		}
	}

	w.routeChoiceDUO()
	for k := range w.RoutePreference {
		for ln, pref := range w.RoutePreference[k] {
			if pref != snapshot[k][ln] {
				t.Errorf("Preference for dest %d link %s changed on repeated full-weight update: %f vs %f", k, ln.Name, snapshot[k][ln], pref)
			}
		}
	}
}

func TestDUODamping(t *testing.T) {
	w := buildDiamondWorld(t)
	w.DuoUpdateWeight = 0.25
	w.InitializeAdjMatrix()

	w.RouteDist, w.RouteNext = routeSearchAll(w.AdjMatTime, 0.0)
	w.routeChoiceDUO() // seeding pass, full weight

	dest, _ := w.GetNode("dest")
	link1a, _ := w.GetLink("link1a")
	link2a, _ := w.GetLink("link2a")
	// Drift the preferences off the indicator and damp once more.
	w.RoutePreference[dest.ID][link2a] = 0.5
	w.RoutePreference[dest.ID][link1a] = 0.8
	w.routeChoiceDUO()

	wantOn := 0.75*0.5 + 0.25
	if math.Abs(w.RoutePreference[dest.ID][link2a]-wantOn) > 1e-9 {
		t.Errorf("Damped on-path preference must be %f, but got %f", wantOn, w.RoutePreference[dest.ID][link2a])
	}
	wantOff := 0.75 * 0.8
	if math.Abs(w.RoutePreference[dest.ID][link1a]-wantOff) > 1e-9 {
		t.Errorf("Damped off-path preference must be %f, but got %f", wantOff, w.RoutePreference[dest.ID][link1a])
	}
}
