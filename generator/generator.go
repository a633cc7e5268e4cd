// Package generator synthesizes random ast.Program values for benchmarking
// the cycle enumerator and fence analyzer, grounded on the teacher's
// builder package's randomized constructors (RandomSparse, RandomRegular):
// the same functional-options + seeded *rand.Rand shape, the same fail-fast
// sentinel-error validation.
package generator

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/katalvlaran/toyfence/ast"
)

// ErrTooFewThreads indicates threads < minThreads for the requested program.
var ErrTooFewThreads = errors.New("generator: too few threads")

// ErrTooFewGlobals indicates globals < minGlobals for the requested program.
var ErrTooFewGlobals = errors.New("generator: too few global variables")

// ErrNeedRandSource indicates a nil *rand.Rand was supplied to Random.
var ErrNeedRandSource = errors.New("generator: rng is required")

const (
	minThreads = 1
	minGlobals = 1

	// defaultStatementsPerThread bounds how many top-level statements each
	// generated thread carries, absent a WithStatementsPerThread option.
	defaultStatementsPerThread = 4
)

// config holds the tunable parameters for Random, resolved from defaults
// plus any Option overrides, exactly as builder.builderConfig is resolved
// from BuilderOption values.
type config struct {
	rng                 *rand.Rand
	threads             int
	globals             int
	statementsPerThread int
	nestingProb         float64 // probability a statement slot becomes If/While instead of Assign/Modify
}

// Option customizes a generated Program.
type Option func(cfg *config)

// WithSeed seeds the generator's RNG for reproducible output.
func WithSeed(seed int64) Option {
	return func(cfg *config) { cfg.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand injects an explicit *rand.Rand. A nil rng is a no-op.
func WithRand(rng *rand.Rand) Option {
	return func(cfg *config) {
		if rng != nil {
			cfg.rng = rng
		}
	}
}

// WithThreads sets the number of threads to generate.
func WithThreads(n int) Option {
	return func(cfg *config) { cfg.threads = n }
}

// WithGlobals sets the number of shared global variables to generate.
func WithGlobals(n int) Option {
	return func(cfg *config) { cfg.globals = n }
}

// WithStatementsPerThread sets how many top-level statements each thread
// carries.
func WithStatementsPerThread(n int) Option {
	return func(cfg *config) { cfg.statementsPerThread = n }
}

// WithNestingProbability sets the chance (0..1) that a generated statement
// slot becomes an If or While instead of a plain Assign/Modify. Values
// outside [0,1] are clamped.
func WithNestingProbability(p float64) Option {
	return func(cfg *config) {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		cfg.nestingProb = p
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		threads:             2,
		globals:             2,
		statementsPerThread: defaultStatementsPerThread,
		nestingProb:         0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Random returns a syntactically valid, scope-clean ast.Program built from
// the given options: threads threads, globals shared variables, each
// thread carrying statementsPerThread top-level statements that randomly
// read and write the globals (and each other's thread-local names are
// never referenced, keeping scopecheck's no-cross-thread-locals invariant
// satisfied by construction).
//
// Every global is initialized to 0 in the init block. Random requires a
// non-nil RNG (via WithSeed or WithRand); fail fast rather than silently
// falling back to an unseeded global source, matching builder.RandomSparse's
// contract.
func Random(opts ...Option) (*ast.Program, error) {
	cfg := newConfig(opts...)

	if cfg.threads < minThreads {
		return nil, fmt.Errorf("generator: threads=%d < min=%d: %w", cfg.threads, minThreads, ErrTooFewThreads)
	}
	if cfg.globals < minGlobals {
		return nil, fmt.Errorf("generator: globals=%d < min=%d: %w", cfg.globals, minGlobals, ErrTooFewGlobals)
	}
	if cfg.rng == nil {
		return nil, fmt.Errorf("generator: %w", ErrNeedRandSource)
	}

	program := &ast.Program{
		GlobalVars: make([]ast.Name, cfg.globals),
		Threads:    make([]ast.Thread, cfg.threads),
		Init:       make([]ast.Init, cfg.globals),
	}
	for i := 0; i < cfg.globals; i++ {
		name := globalName(i)
		program.GlobalVars[i] = name
		program.Init[i] = ast.Init{Name: name, Value: ast.Num{Value: 0}}
	}

	for t := 0; t < cfg.threads; t++ {
		threadName := threadName(t)
		g := &threadGen{cfg: cfg, threadName: threadName, globals: program.GlobalVars}
		program.Threads[t] = ast.Thread{
			Name:         threadName,
			Instructions: g.statements(cfg.statementsPerThread, 0),
		}
	}

	return program, nil
}

func globalName(i int) ast.Name { return fmt.Sprintf("g%d", i) }
func threadName(i int) string   { return fmt.Sprintf("t%d", i) }

// threadGen generates one thread's instruction list, tracking the
// thread-local names it has declared so later statements may reference
// them without ever crossing into another thread's locals.
type threadGen struct {
	cfg        *config
	threadName string
	globals    []ast.Name
	locals     []ast.Name
	nextLocal  int
	nextModify int
}

// maxNestingDepth bounds recursive If/While body generation so a high
// nestingProb cannot produce unbounded statement trees.
const maxNestingDepth = 2

func (g *threadGen) statements(n, depth int) []ast.Statement {
	stmts := make([]ast.Statement, 0, n)
	for i := 0; i < n; i++ {
		if depth < maxNestingDepth && g.cfg.nestingProb > 0 && g.cfg.rng.Float64() < g.cfg.nestingProb {
			stmts = append(stmts, g.branchOrLoop(depth))

			continue
		}
		stmts = append(stmts, g.leafStatement())
	}

	return stmts
}

// branchOrLoop produces either an If or a While, each guarded by a
// condition over an already-declared local (or the literal `0 <= 0` if the
// thread has no local yet). An If gets one generated statement per branch;
// a While gets an empty body.
func (g *threadGen) branchOrLoop(depth int) ast.Statement {
	cond := g.condition()
	if g.cfg.rng.Intn(2) == 0 {
		return &ast.If{Cond: cond, Then: g.statements(1, depth+1), Else: g.statements(1, depth+1)}
	}

	// The body is left empty, so nothing inside the loop changes its guard:
	// a guard that is false on entry skips the loop, and one that holds on
	// entry (always the case for `0 <= 0`) makes interp.Run spin until its
	// step budget is exhausted.
	return &ast.While{Cond: cond, Body: nil}
}

func (g *threadGen) condition() ast.CondExpr {
	if len(g.locals) == 0 {
		return ast.Leq{Left: ast.Num{Value: 0}, Right: ast.Num{Value: 0}}
	}
	local := g.locals[g.cfg.rng.Intn(len(g.locals))]

	return ast.Eq{Left: ast.Var{Name: local}, Right: ast.Num{Value: 0}}
}

// leafStatement generates an Assign (declaring a new local from a random
// global read) on first use of a slot, and a Modify to a global thereafter,
// alternating so every generated thread both reads and writes shared state.
func (g *threadGen) leafStatement() ast.Statement {
	if g.nextModify%2 == 0 {
		g.nextModify++
		local := ast.Name(fmt.Sprintf("%s_l%d", g.threadName, g.nextLocal))
		g.nextLocal++
		g.locals = append(g.locals, local)

		return &ast.Assign{Name: local, Value: ast.Var{Name: g.randomGlobal()}}
	}
	g.nextModify++

	return &ast.Modify{Name: g.randomGlobal(), Value: ast.Num{Value: uint32(g.cfg.rng.Intn(2))}}
}

func (g *threadGen) randomGlobal() ast.Name {
	return g.globals[g.cfg.rng.Intn(len(g.globals))]
}
