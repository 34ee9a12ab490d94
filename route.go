package uxsimpp

import (
	"container/heap"
	"math"

	"github.com/samber/lo"
)

type routeNeighbor struct {
	node   int
	weight float64
}

type routeQueueItem struct {
	dist float64
	node int
}

// routeQueue is a min-heap over (distance, node); ties break on the lower
// node index so that the first-discovered path wins deterministically.
type routeQueue []routeQueueItem

func (q routeQueue) Len() int { return len(q) }
func (q routeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q routeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *routeQueue) Push(x any)   { *q = append(*q, x.(routeQueueItem)) }
func (q *routeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// routeSearchAll runs Dijkstra from every node of the time-weighted
// adjacency and returns the distance matrix and the next-hop matrix.
// nextHop[i][j] is the immediate neighbour of i on the shortest path to j;
// a node stores itself for the self-hop and -1 when j is unreachable.
func routeSearchAll(adj [][]float64, infty float64) ([][]float64, [][]int) {
	nsize := len(adj)
	if math.Abs(infty) < 1e-9 {
		infty = 1e15
	}

	adjList := make([][]routeNeighbor, nsize)
	for i := 0; i < nsize; i++ {
		for j := 0; j < nsize; j++ {
			if adj[i][j] > 0.0 {
				adjList[i] = append(adjList[i], routeNeighbor{node: j, weight: adj[i][j]})
			}
		}
	}

	dist := make([][]float64, nsize)
	nextHop := make([][]int, nsize)
	for i := 0; i < nsize; i++ {
		dist[i] = make([]float64, nsize)
		nextHop[i] = make([]int, nsize)
		for j := 0; j < nsize; j++ {
			dist[i][j] = infty
			nextHop[i][j] = -1
		}
	}

	for start := 0; start < nsize; start++ {
		visited := make([]bool, nsize)
		dist[start][start] = 0.0
		nextHop[start][start] = start

		pq := &routeQueue{{dist: 0.0, node: start}}
		heap.Init(pq)

		for pq.Len() > 0 {
			item := heap.Pop(pq).(routeQueueItem)
			current := item.node
			if visited[current] {
				continue
			}
			visited[current] = true

			for _, nb := range adjList[current] {
				newDist := dist[start][current] + nb.weight
				if newDist < dist[start][nb.node] {
					dist[start][nb.node] = newDist
					if current == start {
						nextHop[start][nb.node] = nb.node
					} else {
						nextHop[start][nb.node] = nextHop[start][current]
					}
					heap.Push(pq, routeQueueItem{dist: newDist, node: nb.node})
				}
			}
		}
	}

	return dist, nextHop
}

// routeChoiceDUO damps the per-destination link preferences toward the
// indicator of the current shortest paths. A destination whose preference
// total is still zero is seeded with the full weight so that the first
// update deterministically selects the shortest path.
func (w *World) routeChoiceDUO() {
	for _, dest := range w.Nodes {
		k := dest.ID

		weight := w.DuoUpdateWeight
		if lo.Sum(lo.Values(w.RoutePreference[k])) == 0 {
			weight = 1.0
		}

		for _, ln := range w.Links {
			i := ln.StartNode.ID
			j := ln.EndNode.ID
			if w.RouteNext[i][k] == j {
				w.RoutePreference[k][ln] = (1.0-weight)*w.RoutePreference[k][ln] + weight
			} else {
				w.RoutePreference[k][ln] = (1.0 - weight) * w.RoutePreference[k][ln]
			}
		}
	}
}
