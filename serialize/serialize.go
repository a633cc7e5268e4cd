// Package serialize encodes an AEG and its critical cycles into the stable
// wire schema of spec.md §6, in either JSON or MessagePack. Both formats
// share the same Go struct tags (`json:"..."`) — MessagePack is told to
// reuse them via msgpack.Encoder.SetCustomStructTag, since vmihailenco's
// encoder otherwise falls back to bare Go field names.
package serialize

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/katalvlaran/toyfence/aeg"
	"github.com/katalvlaran/toyfence/cycles"
)

// Node is the wire representation of an aeg.Node.
type Node struct {
	Kind   string `json:"kind"`
	Thread string `json:"thread"`
	Memory string `json:"memory,omitempty"`
	Fence  string `json:"fence,omitempty"`
}

// Edge is the wire representation of an aeg.Edge.
type Edge struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Kind string `json:"kind"`
}

// Graph is the wire representation of an *aeg.AEG.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// CriticalCycle is the wire representation of a single fence-placement
// combination for a critical cycle: one entry per distinct combination, per
// spec.md §4.3 step 3 ("Emit one CriticalCycle per distinct fence-path
// combination").
type CriticalCycle struct {
	Cycle           []int `json:"cycle"`
	PotentialFences []int `json:"potential_fences"`
}

// Document is the top-level wire object.
type Document struct {
	AEG            Graph           `json:"aeg"`
	CriticalCycles []CriticalCycle `json:"critical_cycles"`
}

// Build assembles the wire Document from a graph and its enumerated
// critical cycles, flattening each cycle's fence combinations into one
// output entry per combination (or one entry with an empty
// potential_fences list, if a cycle somehow carries none).
func Build(g *aeg.AEG, found []cycles.CriticalCycle) Document {
	doc := Document{
		AEG: Graph{
			Nodes: make([]Node, 0, g.NodeCount()),
			Edges: make([]Edge, 0, g.EdgeCount()),
		},
	}

	for _, n := range g.Nodes() {
		wire := Node{Kind: n.Kind.String(), Thread: n.Thread}
		if n.Kind == aeg.FenceNode {
			wire.Fence = n.Fence.String()
		} else {
			wire.Memory = n.Memory
		}
		doc.AEG.Nodes = append(doc.AEG.Nodes, wire)
	}

	for _, e := range g.Edges() {
		doc.AEG.Edges = append(doc.AEG.Edges, Edge{From: int(e.From), To: int(e.To), Kind: e.Kind.String()})
	}

	for _, c := range found {
		cycleNodes := make([]int, len(c.Nodes))
		for i, n := range c.Nodes {
			cycleNodes[i] = int(n)
		}

		if len(c.Fences) == 0 {
			doc.CriticalCycles = append(doc.CriticalCycles, CriticalCycle{Cycle: cycleNodes})

			continue
		}

		for _, combo := range c.Fences {
			fenceEdges := make([]int, len(combo.Edges))
			for i, e := range combo.Edges {
				fenceEdges[i] = int(e)
			}
			doc.CriticalCycles = append(doc.CriticalCycles, CriticalCycle{
				Cycle:           cycleNodes,
				PotentialFences: fenceEdges,
			})
		}
	}

	return doc
}

// EncodeJSON renders g and found as pretty-printed, stable JSON.
func EncodeJSON(g *aeg.AEG, found []cycles.CriticalCycle) ([]byte, error) {
	return json.MarshalIndent(Build(g, found), "", "  ")
}

// DecodeJSON parses a Document previously produced by EncodeJSON.
func DecodeJSON(data []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(data, &doc)

	return doc, err
}

// EncodeMsgPack renders g and found as MessagePack, using the same `json`
// struct tags as EncodeJSON.
func EncodeMsgPack(g *aeg.AEG, found []cycles.CriticalCycle) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(Build(g, found)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeMsgPack parses a Document previously produced by EncodeMsgPack.
func DecodeMsgPack(data []byte) (Document, error) {
	var doc Document
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&doc)

	return doc, err
}
