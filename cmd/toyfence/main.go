// Command toyfence parses, type-checks, interprets, and analyzes programs
// in the toy concurrent language: `run` interprets a program under a given
// memory model, `find-cycles` emits its Abstract Event Graph and every
// critical cycle it contains as JSON or MessagePack.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(exitError)
}
