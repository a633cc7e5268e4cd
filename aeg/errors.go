package aeg

import "errors"

// ErrUnsupportedFence is returned when a source program uses a FenceKind
// the builder does not yet lower to an AEG node (anything but ast.FenceWR).
var ErrUnsupportedFence = errors.New("aeg: unsupported fence kind")

// ErrUnsupportedArch is returned when an AegConfig names an architecture
// the builder and downstream analysis do not implement.
var ErrUnsupportedArch = errors.New("aeg: unsupported architecture")

// ErrNodeNotFound names a NodeID outside the graph's range. No query in
// this package returns it: Node and Edge report a missing handle through
// their boolean result, and the po queries return empty results.
var ErrNodeNotFound = errors.New("aeg: node not found")

// ErrSCNoCycles is returned by callers asked to find critical cycles under
// sequential consistency: SC has no delay relation at all (CS1 never
// holds), so every program is trivially free of critical cycles and no
// fence is ever required.
var ErrSCNoCycles = errors.New("aeg: sequential consistency has no critical cycles")
