// Package fences derives, for a critical cycle, every combination of
// memory-fence placements that would break it.
//
// A critical cycle is broken by placing a fence somewhere along each of its
// delay segments (the consecutive node pairs cycles.Enumerate flagged as
// satisfying CS1 for the target architecture). For a single delay segment
// there may be more than one program-order path between its two endpoints
// — an if/else or a while loop branching between them — and a fence only
// needs to sit on the path actually taken, so every viable path contributes
// its edges as one placement candidate. Compute takes the Cartesian
// product of the per-segment candidate sets, so each returned combination
// holds, for every delay segment, all the edges of one chosen path.
//
// Grounded on the backtracking all_simple_po_paths shape in the aeg
// package's AllSimplePOPaths (itself ported from the original
// simple_paths.rs), generalized here into the per-segment Cartesian product
// spec.md describes; aeg.AEG.POBetween supplies the cheaper single-path
// mode used when the graph's skip-branches heuristic is enabled.
package fences

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/toyfence/aeg"
)

// ErrNoDelaySegment is returned when a cycle passed to Compute contains no
// CS1-satisfying segment at all; cycles.Enumerate should never produce one,
// so this indicates the cycle came from somewhere else.
var ErrNoDelaySegment = errors.New("fences: cycle has no delay segment")

// Combination is one viable fence placement: for each delay segment of the
// cycle it was derived from, the edges of one po path across that segment,
// concatenated in segment order.
type Combination struct {
	Edges []aeg.EdgeID
}

// Compute returns every fence-placement combination that breaks the cycle
// named by nodes, under g.Config.Architecture. nodes is a closed ring (the
// edge from the last node back to the first is implied), exactly the shape
// cycles.CriticalCycle.Nodes carries.
func Compute(g *aeg.AEG, nodes []aeg.NodeID) ([]Combination, error) {
	segments := delaySegments(g, g.Config.Architecture, nodes)
	if len(segments) == 0 {
		return nil, ErrNoDelaySegment
	}

	perSegment := make([][][]aeg.EdgeID, len(segments))
	for i, seg := range segments {
		options, err := candidateEdgeSets(g, seg.from, seg.to)
		if err != nil {
			return nil, err
		}
		if len(options) == 0 {
			// No po path at all between the endpoints (shouldn't happen for
			// a segment IsPOConnected already confirmed, but stay defensive).
			return nil, fmt.Errorf("fences: no po path between %d and %d", seg.from, seg.to)
		}
		perSegment[i] = options
	}

	return cartesianProduct(perSegment), nil
}

type delaySegment struct {
	from, to aeg.NodeID
}

// delaySegments returns every consecutive pair in nodes (wrapping around)
// that is po-connected and satisfies the architecture's delay condition,
// skipping any pair whose po path already crosses a Fence(Full) node.
func delaySegments(g *aeg.AEG, arch aeg.Architecture, nodes []aeg.NodeID) []delaySegment {
	var segments []delaySegment
	n := len(nodes)
	for i := 0; i < n; i++ {
		a, b := nodes[i], nodes[(i+1)%n]
		if !g.IsPOConnected(a, b) {
			continue
		}
		if crossesFence(g, a, b) {
			continue
		}
		if isDelay(g, arch, a, b) {
			segments = append(segments, delaySegment{from: a, to: b})
		}
	}

	return segments
}

func isDelay(g *aeg.AEG, arch aeg.Architecture, a, b aeg.NodeID) bool {
	if arch == aeg.Power {
		return true
	}
	an, _ := g.Node(a)
	bn, _ := g.Node(b)

	return an.Kind == aeg.Write && bn.Kind == aeg.Read
}

func crossesFence(g *aeg.AEG, a, b aeg.NodeID) bool {
	path, ok := g.POBetween(a, b)
	if !ok {
		return false
	}
	for _, id := range path {
		if node, ok := g.Node(id); ok && node.Kind == aeg.FenceNode && node.Fence == aeg.Full {
			return true
		}
	}

	return false
}

// candidateEdgeSets returns, for the delay segment from->to, the list of
// candidate fence-placement edges: one per viable program-order path when
// SkipBranches is disabled (the full all-simple-paths enumeration), or a
// single candidate (the shortest path's edges) when it is enabled.
func candidateEdgeSets(g *aeg.AEG, from, to aeg.NodeID) ([][]aeg.EdgeID, error) {
	var nodePaths [][]aeg.NodeID
	if g.Config.SkipBranches {
		path, ok := g.POBetween(from, to)
		if !ok {
			return nil, nil
		}
		nodePaths = [][]aeg.NodeID{path}
	} else {
		nodePaths = g.AllSimplePOPaths(from, to)
	}

	out := make([][]aeg.EdgeID, 0, len(nodePaths))
	for _, path := range nodePaths {
		edges := make([]aeg.EdgeID, 0, len(path)-1)
		for i := 0; i+1 < len(path); i++ {
			id, ok := g.EdgeBetween(path[i], path[i+1])
			if !ok {
				return nil, fmt.Errorf("fences: missing edge %d->%d in supposed po path", path[i], path[i+1])
			}
			edges = append(edges, id)
		}
		out = append(out, edges)
	}

	return out, nil
}

// cartesianProduct combines one choice per segment into every possible
// Combination.
func cartesianProduct(perSegment [][][]aeg.EdgeID) []Combination {
	combos := []Combination{{}}
	for _, options := range perSegment {
		var next []Combination
		for _, combo := range combos {
			for _, option := range options {
				merged := append(append([]aeg.EdgeID(nil), combo.Edges...), option...)
				next = append(next, Combination{Edges: merged})
			}
		}
		combos = next
	}

	return combos
}
