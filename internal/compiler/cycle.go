package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/prism/internal/ir"
)

// CycleWarning represents a potential observer write cycle.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - A cap clause re-writes its own property (a self-loop that stops
//     once the value is at or under the ceiling)
//   - Two properties recording into each other with a dampening
//     condition
//
// The engine's observer depth bound turns a genuinely divergent cycle
// into a deterministic runtime failure, so static analysis only flags.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["T.a", "T.b", "T.a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on observer writes.
//
// It builds a property dependency graph from observer clauses and computed
// setters and detects strongly connected components (cycles). Nodes are
// "Type.property"; an edge a → b means a write to a can trigger a write
// to b.
//
// The algorithm:
//  1. Build property → property write graph from did_set/will_set clauses
//     and computed setter assignments
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle
//
// A DAG (no cycles) returns an empty warning list. Run after
// ResolveExtends so inherited observer clauses are visible.
func AnalyzeCycles(specs []ir.TypeSpec) []CycleWarning {
	graph := buildWriteGraph(specs)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// writeGraph maps "Type.property" → properties its write can write next.
type writeGraph map[string][]string

// buildWriteGraph constructs the property write graph.
//
// For each property:
//   - cap clauses re-write the observed property itself (self edge)
//   - record_max and assign clauses write their referenced property
//   - computed setter assignments write their targets
func buildWriteGraph(specs []ir.TypeSpec) writeGraph {
	graph := make(writeGraph)

	node := func(typeName, prop string) string {
		return typeName + "." + prop
	}
	refNode := func(typeName, ref string) (string, bool) {
		switch {
		case strings.HasPrefix(ref, "self."):
			return node(typeName, strings.TrimPrefix(ref, "self.")), true
		case strings.HasPrefix(ref, "type."):
			rest := strings.TrimPrefix(ref, "type.")
			if tn, prop, ok := strings.Cut(rest, "."); ok {
				return node(tn, prop), true
			}
		}
		return "", false
	}

	for _, spec := range specs {
		for _, p := range spec.Properties {
			from := node(spec.Name, p.Name)

			addActions := func(actions []ir.ObserverAction) {
				for _, a := range actions {
					switch a.Op {
					case ir.OpCap:
						// The cap write re-enters the observed property.
						graph[from] = append(graph[from], from)
					case ir.OpRecordMax, ir.OpAssign:
						if to, ok := refNode(spec.Name, a.Ref); ok {
							graph[from] = append(graph[from], to)
						}
					}
				}
			}
			addActions(p.WillSet)
			addActions(p.DidSet)

			for _, a := range p.Set {
				if to, ok := refNode(spec.Name, a.Target); ok {
					graph[from] = append(graph[from], to)
				}
			}

			if graph[from] == nil && p.Kind.IsStored() && p.HasObservers() {
				graph[from] = []string{}
			}
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph writeGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of property nodes.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph writeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes
	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// The path shows the cycle sequence by reconstructing a path through the
// SCC. For self-loops, the path is [node, node]. For multi-node cycles,
// the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph writeGraph) CycleWarning {
	if len(scc) == 1 {
		// Self-loop
		prop := scc[0]
		return CycleWarning{
			Path:    []string{prop, prop},
			Message: fmt.Sprintf("Self-writing observer detected: %s → %s", prop, prop),
			Level:   "warning",
		}
	}

	// Multi-node cycle - reconstruct a cycle path
	path := reconstructCyclePath(scc, graph)

	pathStr := strings.Join(path, " → ")
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential observer write cycle detected: %s", pathStr),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph writeGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
