package aeg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/toyfence/aeg"
	"github.com/katalvlaran/toyfence/ast"
)

func countEdges(g *aeg.AEG, kind aeg.EdgeKind) int {
	n := 0
	for _, e := range g.Edges() {
		if e.Kind == kind {
			n++
		}
	}

	return n
}

func TestBuild_InitOnlyHasNoNodes(t *testing.T) {
	program := &ast.Program{
		Init:       []ast.Init{{Name: "x", Value: ast.Num{Value: 1}}},
		GlobalVars: []ast.Name{"x"},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func twoThreadCrossRead() *ast.Program {
	return &ast.Program{
		GlobalVars: []ast.Name{"x", "y"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Modify{Name: "x", Value: ast.Num{Value: 1}},
				&ast.Assign{Name: "a", Value: ast.Var{Name: "y"}},
			}},
			{Name: "t2", Instructions: []ast.Statement{
				&ast.Modify{Name: "y", Value: ast.Num{Value: 1}},
				&ast.Assign{Name: "b", Value: ast.Var{Name: "x"}},
			}},
		},
	}
}

func TestBuild_FromThreads(t *testing.T) {
	g, err := aeg.Build(twoThreadCrossRead())
	require.NoError(t, err)

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 6, g.EdgeCount())
}

func TestBuild_Transitivity(t *testing.T) {
	program := &ast.Program{
		GlobalVars: []ast.Name{"x", "y"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Modify{Name: "x", Value: ast.Num{Value: 0}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 1}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 2}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 3}},
			}},
			{Name: "t2", Instructions: []ast.Statement{
				&ast.Modify{Name: "x", Value: ast.Num{Value: 4}},
				&ast.Modify{Name: "y", Value: ast.Num{Value: 5}},
			}},
		},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)

	assert.Len(t, g.Neighbors(0), 4)
	assert.Len(t, g.Neighbors(1), 3)
	assert.Len(t, g.Neighbors(2), 2)
	assert.Len(t, g.Neighbors(3), 1)
}

func TestBuild_CompetingEdges(t *testing.T) {
	readOnly := &ast.Program{
		GlobalVars: []ast.Name{"x"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}}}},
			{Name: "t2", Instructions: []ast.Statement{&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}}}},
		},
	}
	g, err := aeg.Build(readOnly)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())

	oneWrite := &ast.Program{
		GlobalVars: []ast.Name{"x"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 5}},
			}},
			{Name: "t2", Instructions: []ast.Statement{&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}}}},
		},
	}
	g, err = aeg.Build(oneWrite)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())

	twoReads := &ast.Program{
		GlobalVars: []ast.Name{"x"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}},
				&ast.Assign{Name: "b", Value: ast.Var{Name: "x"}},
			}},
			{Name: "t2", Instructions: []ast.Statement{&ast.Assign{Name: "a", Value: ast.Var{Name: "x"}}}},
		},
	}
	g, err = aeg.Build(twoReads)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuild_If(t *testing.T) {
	program := &ast.Program{
		GlobalVars: []ast.Name{"x", "y", "z"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Assign{Name: "a", Value: ast.Num{Value: 0}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 42}},
				&ast.If{
					Cond: ast.Eq{Left: ast.Num{Value: 1}, Right: ast.Num{Value: 1}},
					Then: []ast.Statement{&ast.Modify{Name: "y", Value: ast.Num{Value: 1}}},
					Else: []ast.Statement{&ast.Modify{Name: "a", Value: ast.Var{Name: "z"}}},
				},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 1}},
			}},
			{Name: "t2", Instructions: []ast.Statement{
				&ast.Assign{Name: "b", Value: ast.Var{Name: "y"}},
				&ast.Assign{Name: "c", Value: ast.Var{Name: "z"}},
				&ast.Assign{Name: "d", Value: ast.Var{Name: "x"}},
			}},
		},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)

	assert.Equal(t, 7, g.NodeCount())
	assert.Equal(t, 6+1, countEdges(g, aeg.ProgramOrder))
	assert.Equal(t, 3*2, countEdges(g, aeg.Competing))
}

func TestBuild_While(t *testing.T) {
	program := &ast.Program{
		GlobalVars: []ast.Name{"x", "y", "z"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Modify{Name: "x", Value: ast.Num{Value: 32}},
				&ast.While{
					Cond: ast.Eq{Left: ast.Var{Name: "x"}, Right: ast.Num{Value: 0}},
					Body: []ast.Statement{
						&ast.Modify{Name: "y", Value: ast.Num{Value: 1}},
						&ast.Modify{Name: "y", Value: ast.Num{Value: 2}},
					},
				},
				&ast.Modify{Name: "z", Value: ast.Num{Value: 1}},
			}},
		},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)

	assert.Equal(t, 6, g.NodeCount())
	assert.Equal(t, 7, countEdges(g, aeg.ProgramOrder))
	assert.Equal(t, 0, countEdges(g, aeg.Competing))
}

func TestBuild_WhileNoBody(t *testing.T) {
	program := &ast.Program{
		GlobalVars: []ast.Name{"x"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Assign{Name: "a", Value: ast.Num{Value: 0}},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 0}},
				&ast.While{
					Cond: ast.Eq{Left: ast.Var{Name: "x"}, Right: ast.Num{Value: 0}},
					Body: []ast.Statement{&ast.Modify{Name: "a", Value: ast.Num{Value: 3}}},
				},
				&ast.Modify{Name: "x", Value: ast.Num{Value: 1}},
			}},
		},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, countEdges(g, aeg.ProgramOrder))
}

func TestBuild_UnsupportedArchitecture(t *testing.T) {
	_, err := aeg.Build(&ast.Program{}, aeg.WithArchitecture(aeg.Arm))
	require.ErrorIs(t, err, aeg.ErrUnsupportedArch)
}

func TestBuild_FenceNode(t *testing.T) {
	program := &ast.Program{
		GlobalVars: []ast.Name{"x", "y"},
		Threads: []ast.Thread{
			{Name: "t1", Instructions: []ast.Statement{
				&ast.Modify{Name: "x", Value: ast.Num{Value: 1}},
				&ast.Fence{Kind: ast.FenceWR},
				&ast.Assign{Name: "a", Value: ast.Var{Name: "y"}},
			}},
		},
	}

	g, err := aeg.Build(program)
	require.NoError(t, err)
	require.Equal(t, 3, g.NodeCount())

	fence, ok := g.Node(1)
	require.True(t, ok)
	assert.Equal(t, aeg.FenceNode, fence.Kind)
	assert.Equal(t, aeg.Full, fence.Fence)
}
