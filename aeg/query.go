package aeg

import "container/heap"

// ClosePONeighbors returns the nodes reachable from id by a single direct
// po edge (not po+, the transitive closure).
// Complexity: O(deg(id)). Concurrency: read lock.
func (g *AEG) ClosePONeighbors(id NodeID) []NodeID {
	g.muEdges.RLock()
	defer g.muEdges.RUnlock()

	ids := g.outPO[id]
	out := make([]NodeID, len(ids))
	for i, eid := range ids {
		out[i] = g.edges[eid].To
	}

	return out
}

// TransitivePONeighbors returns every node reachable from id by one or more
// po edges (po+), each appearing once. A DFS rather than a simple BFS,
// since a while-loop back-edge can create po cycles that a naive recursive
// walk would never terminate on.
// Complexity: O(V + E). Concurrency: read lock.
func (g *AEG) TransitivePONeighbors(id NodeID) []NodeID {
	g.muEdges.RLock()
	defer g.muEdges.RUnlock()

	discovered := make(map[NodeID]bool)
	stack := append([]NodeID(nil), g.closePONeighborsLocked(id)...)
	var out []NodeID

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if discovered[curr] {
			continue
		}
		discovered[curr] = true
		out = append(out, curr)
		for _, succ := range g.closePONeighborsLocked(curr) {
			if !discovered[succ] {
				stack = append(stack, succ)
			}
		}
	}

	return out
}

// closePONeighborsLocked is ClosePONeighbors without acquiring muEdges;
// callers must already hold it (read or write).
func (g *AEG) closePONeighborsLocked(id NodeID) []NodeID {
	ids := g.outPO[id]
	out := make([]NodeID, len(ids))
	for i, eid := range ids {
		out[i] = g.edges[eid].To
	}

	return out
}

// EdgeBetween returns the handle of the edge directly from a to b, if one
// exists (in either the po or competing adjacency).
// Complexity: O(1). Concurrency: read lock.
func (g *AEG) EdgeBetween(a, b NodeID) (EdgeID, bool) {
	g.muEdges.RLock()
	defer g.muEdges.RUnlock()

	id, ok := g.byPair[[2]NodeID{a, b}]

	return id, ok
}

// Neighbors returns every node reachable from id by a single competing edge,
// plus every node reachable transitively by po (po+). Intra-thread
// neighbors are already covered by po+'s transitivity, so only the close
// (non-po) edges need listing separately.
// Complexity: O(V + E). Concurrency: read lock.
func (g *AEG) Neighbors(id NodeID) []NodeID {
	g.muEdges.RLock()
	ids := g.outCompeting[id]
	close := make([]NodeID, len(ids))
	for i, eid := range ids {
		close[i] = g.edges[eid].To
	}
	g.muEdges.RUnlock()

	return append(close, g.TransitivePONeighbors(id)...)
}

// IsPOConnected reports whether there is a po+ path from a to b.
// Complexity: O(V + E). Concurrency: read lock.
func (g *AEG) IsPOConnected(a, b NodeID) bool {
	for _, n := range g.TransitivePONeighbors(a) {
		if n == b {
			return true
		}
	}

	return false
}

// POBetween returns the lowest-cost path from a to b, where a po edge costs
// 0 and a competing edge costs 100. Returns (nil, false) if a and b are not
// po-connected; otherwise a po-only path exists at cost 0, so the returned
// path never crosses a competing edge.
// Complexity: O((V + E) log V) via a min-heap Dijkstra, mirroring the
// teacher's dijkstra package. Concurrency: read lock.
func (g *AEG) POBetween(a, b NodeID) ([]NodeID, bool) {
	if !g.IsPOConnected(a, b) {
		return nil, false
	}

	g.muEdges.RLock()
	defer g.muEdges.RUnlock()

	const (
		poCost        = 0
		competingCost = 100
	)

	dist := map[NodeID]int{a: 0}
	prev := map[NodeID]NodeID{}
	visited := map[NodeID]bool{}

	pq := make(nodeHeap, 0, len(g.nodes))
	heap.Init(&pq)
	heap.Push(&pq, nodeDist{id: a, dist: 0})

	for pq.Len() > 0 {
		curr := heap.Pop(&pq).(nodeDist)
		if visited[curr.id] {
			continue
		}
		visited[curr.id] = true
		if curr.id == b {
			break
		}

		for _, eid := range g.outPO[curr.id] {
			relax(dist, prev, &pq, curr.id, g.edges[eid].To, poCost)
		}
		for _, eid := range g.outCompeting[curr.id] {
			relax(dist, prev, &pq, curr.id, g.edges[eid].To, competingCost)
		}
	}

	if _, ok := dist[b]; !ok {
		return nil, false
	}

	path := []NodeID{b}
	for path[len(path)-1] != a {
		path = append(path, prev[path[len(path)-1]])
	}
	reverseNodes(path)

	return path, true
}

func relax(dist map[NodeID]int, prev map[NodeID]NodeID, pq *nodeHeap, from, to NodeID, cost int) {
	next := dist[from] + cost
	if old, ok := dist[to]; !ok || next < old {
		dist[to] = next
		prev[to] = from
		heap.Push(pq, nodeDist{id: to, dist: next})
	}
}

func reverseNodes(ns []NodeID) {
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
}

// nodeDist is a min-heap entry pairing a node with its tentative distance.
type nodeDist struct {
	id   NodeID
	dist int
}

// nodeHeap is a lazy-deletion min-heap of nodeDist, following the same
// "push duplicates, skip stale pops" strategy as the teacher's dijkstra
// package rather than a decrease-key heap.
type nodeHeap []nodeDist

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(nodeDist)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}

// AllSimplePOPaths enumerates every simple path of po edges from a to b (no
// repeated nodes), backtracking over ClosePONeighbors. Used by fences.Compute
// when skip-branches is disabled and every branch combination must be
// considered instead of only the shortest path.
// Complexity: O(V!) worst case, bounded in practice by the toy language's
// shallow branching; callers should keep SkipBranches enabled for anything
// beyond small test programs.
// Concurrency: read lock held for the whole traversal.
func (g *AEG) AllSimplePOPaths(a, b NodeID) [][]NodeID {
	g.muEdges.RLock()
	defer g.muEdges.RUnlock()

	var paths [][]NodeID
	visited := map[NodeID]bool{a: true}
	path := []NodeID{a}

	var walk func(curr NodeID)
	walk = func(curr NodeID) {
		for _, eid := range g.outPO[curr] {
			next := g.edges[eid].To
			if next == b {
				found := append(append([]NodeID(nil), path...), b)
				paths = append(paths, found)

				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}
	walk(a)

	return paths
}
