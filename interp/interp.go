// Package interp is a reference interpreter for the toy concurrent
// language, executing a parsed, scope-checked ast.Program under either
// sequential consistency or TSO and evaluating its final assertion.
//
// It exists to give a ground truth to compare the AEG-derived analysis
// against: a program the fence analyzer says needs no fences should, in
// fact, always satisfy its assertion when interpreted under Sc, and a
// program the analyzer flags as having a critical cycle should be able to
// violate its assertion when interpreted under Tso without the fences the
// analyzer proposes.
package interp

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/toyfence/ast"
)

// MemoryModel selects the visibility rule Run executes under.
type MemoryModel int

const (
	// Sc makes every write immediately visible to every thread.
	Sc MemoryModel = iota
	// Tso buffers each thread's writes in per-thread FIFO order; a thread
	// always sees its own writes immediately (store forwarding), but other
	// threads only see them once the buffer drains, on any Fence statement
	// or at the end of the thread's own execution.
	Tso
)

func (m MemoryModel) String() string {
	switch m {
	case Sc:
		return "sc"
	case Tso:
		return "tso"
	default:
		return "unknown"
	}
}

// ErrUnboundedExecution is returned when the round-robin scheduler exceeds
// its step budget, almost always meaning the program contains a loop whose
// condition this interpreter's execution path never falsifies.
var ErrUnboundedExecution = errors.New("interp: exceeded scheduler step budget")

// Option configures Run.
type Option func(*config)

type config struct {
	maxSteps int
}

// defaultMaxSteps bounds the round-robin scheduler for any program this
// toy language can express without looking pathological; WithMaxSteps
// raises or lowers it.
const defaultMaxSteps = 1_000_000

// WithMaxSteps overrides the scheduler's step budget.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// Run executes program to completion under model using a deterministic
// round-robin scheduler (threads take turns in declaration order, one AST
// node of progress per turn), then evaluates every entry of program.Assert,
// returning their conjunction. A nil/empty Assert list is vacuously true.
func Run(program *ast.Program, model MemoryModel, opts ...Option) (bool, error) {
	cfg := config{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := newEngine(model)
	e.runInit(program.Init)
	for _, name := range program.GlobalVars {
		e.globals[name] = true
	}

	cursors := make(map[string]*cursor, len(program.Threads))
	order := make([]string, 0, len(program.Threads))
	for _, thread := range program.Threads {
		cursors[thread.Name] = &cursor{stack: []frame{{stmts: thread.Instructions}}}
		order = append(order, thread.Name)
		e.locals[thread.Name] = make(map[ast.Name]uint32)
	}

	steps := 0
	for {
		progressed := false
		for _, name := range order {
			c := cursors[name]
			if c.done() {
				e.flush(name)

				continue
			}
			c.step(e, name)
			progressed = true
			steps++
			if steps > cfg.maxSteps {
				return false, fmt.Errorf("%w: after %d steps", ErrUnboundedExecution, steps)
			}
			if c.done() {
				e.flush(name)
			}
		}
		if !progressed {
			break
		}
	}

	result := true
	for _, a := range program.Assert {
		result = result && e.evalLogicExpr(a)
	}

	return result, nil
}

// frame is one nested block of a thread's execution: a statement list and
// the position of the next statement to execute within it.
type frame struct {
	stmts []ast.Statement
	pos   int
}

// cursor is a thread's suspended execution point: a stack of frames, deepest
// block on top, so a single step() call can make exactly one unit of
// progress (entering a block, leaving one, or executing one atomic
// statement) without needing native recursion to hold the thread's place.
type cursor struct {
	stack []frame
}

func (c *cursor) done() bool {
	return len(c.stack) == 0
}

// step advances the cursor by exactly one AST node: popping an exhausted
// frame, executing the next atomic statement, or pushing the frame for a
// branch/loop body. Entering an empty block and looping back to
// re-evaluate a while condition are each their own step, which is what
// bounds an empty-body `while (true) {}` under the scheduler's step budget
// instead of spinning forever inside a single call.
func (c *cursor) step(e *engine, thread string) {
	if len(c.stack) == 0 {
		return
	}
	top := &c.stack[len(c.stack)-1]
	if top.pos >= len(top.stmts) {
		c.stack = c.stack[:len(c.stack)-1]

		return
	}

	switch s := top.stmts[top.pos].(type) {
	case *ast.Assign:
		top.pos++
		e.execAssign(thread, s)
	case *ast.Modify:
		top.pos++
		e.execModify(thread, s)
	case *ast.Fence:
		top.pos++
		e.flush(thread)
	case *ast.If:
		top.pos++
		if e.evalCond(thread, s.Cond) {
			c.stack = append(c.stack, frame{stmts: s.Then})
		} else {
			c.stack = append(c.stack, frame{stmts: s.Else})
		}
	case *ast.While:
		if e.evalCond(thread, s.Cond) {
			c.stack = append(c.stack, frame{stmts: s.Body})
		} else {
			top.pos++
		}
	}
}

// pendingWrite is one buffered store awaiting flush to shared memory.
type pendingWrite struct {
	name  ast.Name
	value uint32
}

// engine holds the interpreter's entire mutable state: global memory,
// per-thread locals, and (under Tso) each thread's FIFO store buffer.
type engine struct {
	model   MemoryModel
	globals map[ast.Name]bool
	memory  map[ast.Name]uint32
	locals  map[string]map[ast.Name]uint32
	buffers map[string][]pendingWrite
}

func newEngine(model MemoryModel) *engine {
	return &engine{
		model:   model,
		globals: make(map[ast.Name]bool),
		memory:  make(map[ast.Name]uint32),
		locals:  make(map[string]map[ast.Name]uint32),
		buffers: make(map[string][]pendingWrite),
	}
}

func (e *engine) runInit(inits []ast.Init) {
	for _, init := range inits {
		e.globals[init.Name] = true
		e.memory[init.Name] = e.evalExpr("", init.Value)
	}
}

func (e *engine) execAssign(thread string, s *ast.Assign) {
	e.locals[thread][s.Name] = e.evalExpr(thread, s.Value)
}

func (e *engine) execModify(thread string, s *ast.Modify) {
	value := e.evalExpr(thread, s.Value)
	if !e.globals[s.Name] {
		e.locals[thread][s.Name] = value

		return
	}

	switch e.model {
	case Sc:
		e.memory[s.Name] = value
	case Tso:
		e.buffers[thread] = append(e.buffers[thread], pendingWrite{name: s.Name, value: value})
	}
}

// flush drains thread's store buffer into shared memory in FIFO order. A
// no-op under Sc, and a no-op if the buffer is already empty.
func (e *engine) flush(thread string) {
	for _, w := range e.buffers[thread] {
		e.memory[w.name] = w.value
	}
	e.buffers[thread] = nil
}

// read implements store forwarding: a thread always observes its own most
// recent buffered write to a global before falling back to shared memory,
// exactly as TSO requires.
func (e *engine) read(thread string, name ast.Name) uint32 {
	if !e.globals[name] {
		return e.locals[thread][name]
	}
	for i := len(e.buffers[thread]) - 1; i >= 0; i-- {
		if e.buffers[thread][i].name == name {
			return e.buffers[thread][i].value
		}
	}

	return e.memory[name]
}

func (e *engine) evalExpr(thread string, expr ast.Expr) uint32 {
	switch v := expr.(type) {
	case ast.Num:
		return v.Value
	case ast.Var:
		return e.read(thread, v.Name)
	default:
		return 0
	}
}

func (e *engine) evalCond(thread string, cond ast.CondExpr) bool {
	switch c := cond.(type) {
	case ast.Neg:
		return !e.evalCond(thread, c.X)
	case ast.And:
		return e.evalCond(thread, c.Left) && e.evalCond(thread, c.Right)
	case ast.Eq:
		return e.evalExpr(thread, c.Left) == e.evalExpr(thread, c.Right)
	case ast.Leq:
		return e.evalExpr(thread, c.Left) <= e.evalExpr(thread, c.Right)
	default:
		return false
	}
}

func (e *engine) readLocal(thread, name string) uint32 {
	locals, ok := e.locals[thread]
	if !ok {
		return 0
	}

	return locals[ast.Name(name)]
}

func (e *engine) evalLogicExpr(expr ast.LogicExpr) bool {
	switch v := expr.(type) {
	case ast.LogicNeg:
		return !e.evalLogicExpr(v.X)
	case ast.LogicAnd:
		return e.evalLogicExpr(v.Left) && e.evalLogicExpr(v.Right)
	case ast.LogicEq:
		return e.evalLogicInt(v.Left) == e.evalLogicInt(v.Right)
	case ast.LogicLeq:
		return e.evalLogicInt(v.Left) <= e.evalLogicInt(v.Right)
	default:
		return false
	}
}

func (e *engine) evalLogicInt(li ast.LogicInt) uint32 {
	switch v := li.(type) {
	case ast.LogicNum:
		return v.Value
	case ast.LogicVar:
		return e.readLocal(v.Thread, v.Variable)
	default:
		return 0
	}
}
