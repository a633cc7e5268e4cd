package aeg

import (
	"fmt"

	"github.com/katalvlaran/toyfence/ast"
)

// BuildOption configures Build. Follows the functional-options shape used
// throughout the teacher's builder package (e.g. builder.WithSeed).
type BuildOption func(*AegConfig)

// WithArchitecture overrides the default architecture (Tso).
func WithArchitecture(a Architecture) BuildOption {
	return func(c *AegConfig) { c.Architecture = a }
}

// WithSkipBranches overrides the default skip-branches heuristic (enabled).
// Disabling it is required before fences.Compute can enumerate every simple
// po-path per delay instead of only the shortest.
func WithSkipBranches(skip bool) BuildOption {
	return func(c *AegConfig) { c.SkipBranches = skip }
}

// Build lowers program into an Abstract Event Graph.
//
// Only reads and writes to names in program.GlobalVars become nodes; a
// thread-local Assign or Modify is invisible to the AEG, since it can never
// participate in a competing edge. Fence(WR) always becomes a node, since
// fences constrain program order regardless of which memory they guard.
//
// Build never mutates program and is safe to call repeatedly (each call
// returns an independent graph).
func Build(program *ast.Program, opts ...BuildOption) (*AEG, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Architecture != Tso && cfg.Architecture != Power {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArch, cfg.Architecture)
	}

	g := newAEG(cfg)

	type access struct {
		writes []NodeID
		reads  []NodeID
	}
	perThread := make([]access, 0, len(program.Threads))

	for _, thread := range program.Threads {
		tb := &threadBuilder{
			graph:        g,
			globals:      program.GlobalVars,
			thread:       thread.Name,
			skipBranches: cfg.SkipBranches,
		}
		var lastNode []NodeID
		for _, stmt := range thread.Instructions {
			tb.handleStatement(&lastNode, stmt)
		}
		if tb.err != nil {
			return nil, tb.err
		}
		perThread = append(perThread, access{writes: tb.writeNodes, reads: tb.readNodes})
	}

	// Competing edges are only ever inter-thread; the init block is
	// single-threaded so it never contributes nodes here. For every write in
	// thread i, look at every other thread j's writes and reads to the same
	// memory, and link both directions (an undirected relation modeled as
	// two directed edges, per the teacher's AEG-edge convention).
	for i, ti := range perThread {
		for _, w := range ti.writes {
			wNode, _ := g.Node(w)
			for j, tj := range perThread {
				if j == i {
					continue
				}
				for _, ow := range tj.writes {
					owNode, _ := g.Node(ow)
					if owNode.Memory == wNode.Memory {
						g.updateEdge(w, ow, Competing)
						g.updateEdge(ow, w, Competing)
					}
				}
				for _, or := range tj.reads {
					orNode, _ := g.Node(or)
					if orNode.Memory == wNode.Memory {
						g.updateEdge(w, or, Competing)
						g.updateEdge(or, w, Competing)
					}
				}
			}
		}
	}

	return g, nil
}

// threadBuilder folds a single thread's instruction list into graph,
// accumulating the global reads and writes it produces so Build can later
// compute competing edges across threads.
type threadBuilder struct {
	graph        *AEG
	globals      []ast.Name
	thread       ThreadID
	skipBranches bool

	readNodes  []NodeID
	writeNodes []NodeID

	// err records the first unsupported fence kind met; Build returns it.
	err error
}

func (b *threadBuilder) isGlobal(name ast.Name) bool {
	for _, g := range b.globals {
		if g == name {
			return true
		}
	}

	return false
}

// connectPrevious links every node in last to current with a po edge,
// skipping any self-loop (a branch whose predecessor set already contains
// the node being connected).
func (b *threadBuilder) connectPrevious(last []NodeID, current NodeID) {
	for _, n := range last {
		if n != current {
			b.graph.updateEdge(n, current, ProgramOrder)
		}
	}
}

// handleStatement adds the nodes for stmt to the graph and returns the
// handles of its first node(s), or nil if stmt produced no AEG nodes (a
// thread-local assignment, or an empty branch). last is both read (to wire
// the incoming po edge) and written (to the new frontier) in place.
//
// Grounded on the branch-skip-connection and condition-duplication
// heuristics described for critical-cycle shortest-path discovery: an
// if/else gets a synthetic po edge spanning the whole block, and a while
// loop's condition is represented twice (entry check, and the re-check
// after each iteration) so the path length from body to condition reflects
// n+1 evaluations for n iterations.
func (b *threadBuilder) handleStatement(last *[]NodeID, stmt ast.Statement) []NodeID {
	switch s := stmt.(type) {
	case *ast.Assign:
		return b.handleWrite(last, s.Name, s.Value)
	case *ast.Modify:
		return b.handleWrite(last, s.Name, s.Value)
	case *ast.Fence:
		if s.Kind != ast.FenceWR {
			if b.err == nil {
				b.err = fmt.Errorf("%w: %s", ErrUnsupportedFence, s.Kind)
			}

			return nil
		}
		f := b.graph.addNode(Node{Kind: FenceNode, Thread: b.thread, Fence: Full})
		b.connectPrevious(*last, f)
		*last = []NodeID{f}

		return []NodeID{f}
	case *ast.If:
		return b.handleIf(last, s)
	case *ast.While:
		return b.handleWhile(last, s)
	default:
		return nil
	}
}

// handleWrite covers both Assign and Modify, since the AEG only cares
// whether the target and (if any) source are global, not which surface
// statement produced the access.
func (b *threadBuilder) handleWrite(last *[]NodeID, name ast.Name, value ast.Expr) []NodeID {
	v, isVar := value.(ast.Var)
	writeGlobal := b.isGlobal(name)

	if !isVar {
		if !writeGlobal {
			return nil
		}
		lhs := b.graph.addNode(Node{Kind: Write, Thread: b.thread, Memory: name})
		b.connectPrevious(*last, lhs)
		*last = []NodeID{lhs}
		b.writeNodes = append(b.writeNodes, lhs)

		return []NodeID{lhs}
	}

	readGlobal := b.isGlobal(v.Name)
	switch {
	case writeGlobal && readGlobal:
		rhs := b.graph.addNode(Node{Kind: Read, Thread: b.thread, Memory: v.Name})
		b.connectPrevious(*last, rhs)
		lhs := b.graph.addNode(Node{Kind: Write, Thread: b.thread, Memory: name})
		b.graph.updateEdge(rhs, lhs, ProgramOrder)
		*last = []NodeID{lhs}
		b.writeNodes = append(b.writeNodes, lhs)
		b.readNodes = append(b.readNodes, rhs)

		return []NodeID{rhs}
	case writeGlobal:
		lhs := b.graph.addNode(Node{Kind: Write, Thread: b.thread, Memory: name})
		b.connectPrevious(*last, lhs)
		*last = []NodeID{lhs}
		b.writeNodes = append(b.writeNodes, lhs)

		return []NodeID{lhs}
	case readGlobal:
		rhs := b.graph.addNode(Node{Kind: Read, Thread: b.thread, Memory: v.Name})
		b.connectPrevious(*last, rhs)
		*last = []NodeID{rhs}
		b.readNodes = append(b.readNodes, rhs)

		return []NodeID{rhs}
	default:
		return nil
	}
}

// handleCondition walks cond left to right, chaining each global read it
// finds to the previous one with a po edge, and appends every such read to
// reads in evaluation order.
func (b *threadBuilder) handleCondition(reads *[]NodeID, cond ast.CondExpr) {
	switch c := cond.(type) {
	case ast.Neg:
		b.handleCondition(reads, c.X)
	case ast.And:
		b.handleCondition(reads, c.Left)
		b.handleCondition(reads, c.Right)
	case ast.Eq:
		b.handleExpr(reads, c.Left)
		b.handleExpr(reads, c.Right)
	case ast.Leq:
		b.handleExpr(reads, c.Left)
		b.handleExpr(reads, c.Right)
	}
}

func (b *threadBuilder) handleExpr(reads *[]NodeID, e ast.Expr) {
	v, ok := e.(ast.Var)
	if !ok || !b.isGlobal(v.Name) {
		return
	}
	node := b.graph.addNode(Node{Kind: Read, Thread: b.thread, Memory: v.Name})
	if len(*reads) > 0 {
		b.graph.updateEdge((*reads)[len(*reads)-1], node, ProgramOrder)
	}
	*reads = append(*reads, node)
	b.readNodes = append(b.readNodes, node)
}

func (b *threadBuilder) handleIf(last *[]NodeID, s *ast.If) []NodeID {
	var condReads []NodeID
	b.handleCondition(&condReads, s.Cond)

	var first []NodeID
	if len(condReads) > 0 {
		first = []NodeID{condReads[0]}
		b.connectPrevious(*last, condReads[0])
	}
	if len(condReads) > 0 {
		*last = []NodeID{condReads[len(condReads)-1]}
	}

	// Snapshot of the frontier just before branching; reused below both as
	// the thenBranch traversal seed and, if skip-branches is enabled, as an
	// extra synthetic predecessor of whatever follows the whole if.
	conditionOrLast := append([]NodeID(nil), *last...)

	thenBranch := append([]NodeID(nil), *last...)
	var firstThen []NodeID
	for _, stmt := range s.Then {
		if f := b.handleStatement(&thenBranch, stmt); firstThen == nil && f != nil {
			firstThen = f
		}
	}

	var firstEls []NodeID
	for _, stmt := range s.Else {
		if f := b.handleStatement(last, stmt); firstEls == nil && f != nil {
			firstEls = f
		}
	}

	for _, n := range thenBranch {
		if !containsNode(*last, n) {
			*last = append(*last, n)
		}
	}

	if b.skipBranches {
		*last = append(*last, conditionOrLast...)
	}

	switch {
	case first != nil:
		return first
	case firstThen != nil:
		if firstEls != nil {
			return append(append([]NodeID(nil), firstThen...), firstEls...)
		}

		return firstThen
	default:
		return firstEls
	}
}

func (b *threadBuilder) handleWhile(last *[]NodeID, s *ast.While) []NodeID {
	var condReads []NodeID
	b.handleCondition(&condReads, s.Cond)

	var firstCond NodeID
	haveFirstCond := len(condReads) > 0
	if haveFirstCond {
		firstCond = condReads[0]
		b.connectPrevious(*last, firstCond)
		*last = []NodeID{condReads[len(condReads)-1]}
	}

	branch := append([]NodeID(nil), *last...)

	var firstBody []NodeID
	for _, stmt := range s.Body {
		if f := b.handleStatement(last, stmt); firstBody == nil && f != nil {
			firstBody = f
		}
	}

	switch {
	case haveFirstCond && firstBody != nil:
		// Condition duplication: re-emit the condition's reads for the
		// back-edge re-check, so a path from the loop body back to the top
		// of the loop is distinct from the path that enters it the first
		// time.
		var condReads2 []NodeID
		b.handleCondition(&condReads2, s.Cond)
		if len(condReads2) > 0 {
			b.connectPrevious(*last, condReads2[0])
		}
		lastRead := condReads2[len(condReads2)-1]
		for _, n := range firstBody {
			b.connectPrevious([]NodeID{lastRead}, n)
		}
		*last = append(append([]NodeID(nil), branch...), lastRead)

		return []NodeID{firstCond}
	case haveFirstCond:
		b.connectPrevious(*last, firstCond)

		return []NodeID{firstCond}
	case firstBody != nil:
		for _, n := range firstBody {
			b.connectPrevious(*last, n)
		}
		*last = append(*last, branch...)

		return firstBody
	default:
		return nil
	}
}

func containsNode(nodes []NodeID, n NodeID) bool {
	for _, x := range nodes {
		if x == n {
			return true
		}
	}

	return false
}
