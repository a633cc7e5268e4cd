// Package scopecheck validates that every variable reference in a
// toy-language program resolves to a declared global or a thread-local
// declared earlier in the same thread, that no two threads share a name,
// and that a thread never declares the same local twice.
package scopecheck

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/toyfence/ast"
)

// ErrUndefinedVar is returned when an expression references a name that is
// neither a global nor an already-declared thread-local.
var ErrUndefinedVar = errors.New("scopecheck: undefined variable")

// ErrUndefinedModify is returned when a Modify targets a name that was
// never declared, neither as a global nor as a thread-local.
var ErrUndefinedModify = errors.New("scopecheck: modify of undeclared variable")

// ErrUndefinedLogicVar is returned when the final assertion references
// thread.variable for a thread or a thread-local that does not exist.
var ErrUndefinedLogicVar = errors.New("scopecheck: undefined assertion variable")

// ErrDuplicateThread is returned when two threads share a name.
var ErrDuplicateThread = errors.New("scopecheck: duplicate thread name")

// ErrDuplicateLocal is returned when a thread declares the same local name
// twice with Assign (Modify re-assignment is always legal).
var ErrDuplicateLocal = errors.New("scopecheck: duplicate local declaration")

// Check validates program and returns nil if it is well-scoped. The
// original implementation only checked top-level Assign/Modify/Fence
// statements in a thread body; Check also recurses into If and While
// bodies, since an unchecked branch would let an undefined-variable bug
// hide behind a conditional.
func Check(program *ast.Program) error {
	globals := make(map[ast.Name]bool, len(program.Init))
	for _, init := range program.Init {
		if v, ok := init.Value.(ast.Var); ok && !globals[v.Name] {
			return fmt.Errorf("%w: init of %q references undeclared %q", ErrUndefinedVar, init.Name, v.Name)
		}
		globals[init.Name] = true
	}

	threadLocals := make(map[string]map[ast.Name]bool, len(program.Threads))
	threadNames := make(map[string]bool, len(program.Threads))
	for _, thread := range program.Threads {
		if threadNames[thread.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateThread, thread.Name)
		}
		threadNames[thread.Name] = true

		locals := make(map[ast.Name]bool)
		for _, stmt := range thread.Instructions {
			if err := checkStatement(stmt, globals, locals); err != nil {
				return err
			}
		}
		threadLocals[thread.Name] = locals
	}

	for _, expr := range program.Assert {
		if err := checkLogicExpr(expr, threadLocals); err != nil {
			return err
		}
	}

	return nil
}

func checkExpr(e ast.Expr, globals map[ast.Name]bool, locals map[ast.Name]bool) error {
	v, ok := e.(ast.Var)
	if !ok {
		return nil
	}
	if globals[v.Name] || locals[v.Name] {
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUndefinedVar, v.Name)
}

func checkStatement(stmt ast.Statement, globals map[ast.Name]bool, locals map[ast.Name]bool) error {
	switch s := stmt.(type) {
	case *ast.Assign:
		if locals[s.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateLocal, s.Name)
		}
		if err := checkExpr(s.Value, globals, locals); err != nil {
			return err
		}
		locals[s.Name] = true

		return nil
	case *ast.Modify:
		if !globals[s.Name] && !locals[s.Name] {
			return fmt.Errorf("%w: %q", ErrUndefinedModify, s.Name)
		}

		return checkExpr(s.Value, globals, locals)
	case *ast.Fence:
		return nil
	case *ast.If:
		if err := checkCond(s.Cond, globals, locals); err != nil {
			return err
		}
		for _, stmt := range s.Then {
			if err := checkStatement(stmt, globals, locals); err != nil {
				return err
			}
		}
		for _, stmt := range s.Else {
			if err := checkStatement(stmt, globals, locals); err != nil {
				return err
			}
		}

		return nil
	case *ast.While:
		if err := checkCond(s.Cond, globals, locals); err != nil {
			return err
		}
		for _, stmt := range s.Body {
			if err := checkStatement(stmt, globals, locals); err != nil {
				return err
			}
		}

		return nil
	default:
		return nil
	}
}

func checkCond(cond ast.CondExpr, globals map[ast.Name]bool, locals map[ast.Name]bool) error {
	switch c := cond.(type) {
	case ast.Neg:
		return checkCond(c.X, globals, locals)
	case ast.And:
		if err := checkCond(c.Left, globals, locals); err != nil {
			return err
		}

		return checkCond(c.Right, globals, locals)
	case ast.Eq:
		if err := checkExpr(c.Left, globals, locals); err != nil {
			return err
		}

		return checkExpr(c.Right, globals, locals)
	case ast.Leq:
		if err := checkExpr(c.Left, globals, locals); err != nil {
			return err
		}

		return checkExpr(c.Right, globals, locals)
	default:
		return nil
	}
}

func checkLogicExpr(expr ast.LogicExpr, threadLocals map[string]map[ast.Name]bool) error {
	switch e := expr.(type) {
	case ast.LogicNeg:
		return checkLogicExpr(e.X, threadLocals)
	case ast.LogicAnd:
		if err := checkLogicExpr(e.Left, threadLocals); err != nil {
			return err
		}

		return checkLogicExpr(e.Right, threadLocals)
	case ast.LogicEq:
		if err := checkLogicInt(e.Left, threadLocals); err != nil {
			return err
		}

		return checkLogicInt(e.Right, threadLocals)
	case ast.LogicLeq:
		if err := checkLogicInt(e.Left, threadLocals); err != nil {
			return err
		}

		return checkLogicInt(e.Right, threadLocals)
	default:
		return nil
	}
}

func checkLogicInt(li ast.LogicInt, threadLocals map[string]map[ast.Name]bool) error {
	v, ok := li.(ast.LogicVar)
	if !ok {
		return nil
	}
	locals, ok := threadLocals[v.Thread]
	if !ok || !locals[v.Variable] {
		return fmt.Errorf("%w: %s.%s", ErrUndefinedLogicVar, v.Thread, v.Variable)
	}

	return nil
}
