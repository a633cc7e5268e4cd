package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/toyfence/aeg"
)

const storeBufferSource = `
let x: u32 = 0;
let y: u32 = 0;

thread t1 {
    x = 1;
    let a: u32 = y;
}
thread t2 {
    y = 1;
    let b: u32 = x;
}

final {
    assert( !(t1.a == 0 && t2.b == 0) );
}
`

func writeTempProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.tf")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func TestRun_ScAssertionHolds(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)

	out, err := execute(t, "run", path, "--memory-model", "sc")
	require.NoError(t, err)
	assert.Contains(t, out, "assertion holds")
}

func TestRun_TsoAssertionFailsExitsNonZero(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)

	_, err := execute(t, "run", path, "--memory-model", "tso")
	require.Error(t, err)

	var exitErr *exitCodeError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitAssertFailed, exitErr.code)
}

func TestRun_InvalidSourceReturnsExitTwo(t *testing.T) {
	path := writeTempProgram(t, "not a valid program")

	_, err := execute(t, "run", path, "--memory-model", "sc")
	require.Error(t, err)

	var exitErr *exitCodeError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitInvalidSource, exitErr.code)
}

func TestFindCycles_ScIsAnError(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)

	_, err := execute(t, "find-cycles", path, "--memory-model", "sc")
	require.Error(t, err)
	assert.ErrorIs(t, err, aeg.ErrSCNoCycles)
}

func TestFindCycles_TsoPrintsJSONToStdout(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)

	out, err := execute(t, "find-cycles", path, "--memory-model", "tso")
	require.NoError(t, err)
	assert.Contains(t, out, `"critical_cycles"`)
	assert.Contains(t, out, `"potential_fences"`)
}

func TestFindCycles_MsgPackWithoutOutputFileIsAUsageError(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)

	_, err := execute(t, "find-cycles", path, "--memory-model", "tso", "--format", "message-pack")
	require.Error(t, err)

	var exitErr *exitCodeError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitInvalidSource, exitErr.code)
}

func TestFindCycles_MsgPackWritesToOutputFile(t *testing.T) {
	path := writeTempProgram(t, storeBufferSource)
	outPath := filepath.Join(t.TempDir(), "out.msgpack")

	_, err := execute(t, "find-cycles", path, "--memory-model", "tso", "--format", "message-pack", "--output-file", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
