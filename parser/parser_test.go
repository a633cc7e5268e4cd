package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/toyfence/ast"
	"github.com/katalvlaran/toyfence/parser"
)

func TestParse_Init(t *testing.T) {
	src := `
	let x: u32 = 0;
	let y: u32 = 0;
	final {}
	`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []ast.Name{"x", "y"}, prog.GlobalVars)
	require.Len(t, prog.Init, 2)
	assert.Equal(t, ast.Init{Name: "x", Value: ast.Num{Value: 0}}, prog.Init[0])
}

func TestParse_FullProgram(t *testing.T) {
	src := `
	let x: u32 = 0;
	let y: u32 = 0;
	thread t1 {
		x = 1;
		Fence(WR);
		let a: u32 = y;
	}
	thread t2 {
		y = 1;
		Fence(WR);
		let b: u32 = x;
	}
	final {
		assert( !( t1.a == 0 && t2.b == 0 ) );
	}
	`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Threads, 2)
	assert.Equal(t, "t1", prog.Threads[0].Name)
	require.Len(t, prog.Threads[0].Instructions, 3)

	fence, ok := prog.Threads[0].Instructions[1].(*ast.Fence)
	require.True(t, ok)
	assert.Equal(t, ast.FenceWR, fence.Kind)

	require.Len(t, prog.Assert, 1)
	neg, ok := prog.Assert[0].(ast.LogicNeg)
	require.True(t, ok)
	and, ok := neg.X.(ast.LogicAnd)
	require.True(t, ok)
	eqLeft, ok := and.Left.(ast.LogicEq)
	require.True(t, ok)
	assert.Equal(t, ast.LogicVar{Thread: "t1", Variable: "a"}, eqLeft.Left)
}

func TestParse_IfElse(t *testing.T) {
	src := `
	let x: u32 = 0;
	thread t1 {
		if (x == 0) {
			x = 1;
		} else {
			x = 2;
		}
	}
	final {}
	`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	ifStmt, ok := prog.Threads[0].Instructions[0].(*ast.If)
	require.True(t, ok)
	assert.Equal(t, ast.Eq{Left: ast.Var{Name: "x"}, Right: ast.Num{Value: 0}}, ifStmt.Cond)
	require.Len(t, ifStmt.Then, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestParse_While(t *testing.T) {
	src := `
	let x: u32 = 0;
	thread t1 {
		while (x == 0) {
			x = 1;
		}
	}
	final {}
	`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	whileStmt, ok := prog.Threads[0].Instructions[0].(*ast.While)
	require.True(t, ok)
	require.Len(t, whileStmt.Body, 1)
}

func TestParse_LeqCondition(t *testing.T) {
	src := `
	let x: u32 = 0;
	thread t1 {
		if (x <= 3) {
			x = 1;
		} else {
			x = 2;
		}
	}
	final {}
	`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	ifStmt := prog.Threads[0].Instructions[0].(*ast.If)
	assert.Equal(t, ast.Leq{Left: ast.Var{Name: "x"}, Right: ast.Num{Value: 3}}, ifStmt.Cond)
}

func TestParse_ShadowErrorOnGlobal(t *testing.T) {
	src := `
	let x: u32 = 0;
	thread t1 {
		let x: u32 = 1;
	}
	final {}
	`
	_, err := parser.Parse(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrShadow)

	var shadowErr *parser.ShadowError
	require.ErrorAs(t, err, &shadowErr)
	assert.Equal(t, "x", shadowErr.Name)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := parser.Parse(`let x: u32 = ;`)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrSyntax)
}

func TestParse_FenceUnknownKind(t *testing.T) {
	src := `
	thread t1 {
		Fence(XX);
	}
	final {}
	`
	_, err := parser.Parse(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrSyntax)
}
