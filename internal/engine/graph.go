package engine

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
)

// DAG is the definition dependency graph recorded in a manifest.
// An edge points from a definition to a snippet it includes.
type DAG struct {
	nodes map[string]*dagNode
	order []string // topological order: snippets before their dependents
}

type dagNode struct {
	path     string
	edges    []string // definitions this node includes
	revEdges []string // definitions that include this node
	snippet  bool
}

// BuildDAG constructs the graph from the dependency lists of a manifest.
// Dependencies that have no entry of their own still become nodes.
func BuildDAG(m *ir.Manifest) (*DAG, error) {
	dag := &DAG{nodes: make(map[string]*dagNode)}

	node := func(path string) *dagNode {
		n, ok := dag.nodes[path]
		if !ok {
			n = &dagNode{path: path}
			dag.nodes[path] = n
		}
		return n
	}

	if m != nil {
		for path, entry := range m.Files {
			n := node(path)
			n.snippet = entry.Snippet
			for _, dep := range entry.Dependencies {
				if !slices.Contains(n.edges, dep) {
					n.edges = append(n.edges, dep)
				}
				node(dep)
			}
		}
	}

	for path, n := range dag.nodes {
		for _, dep := range n.edges {
			dag.nodes[dep].revEdges = append(dag.nodes[dep].revEdges, path)
		}
	}
	for _, n := range dag.nodes {
		sort.Strings(n.edges)
		sort.Strings(n.revEdges)
	}

	order, err := dag.topoSort()
	if err != nil {
		return nil, err
	}
	dag.order = order
	return dag, nil
}

// Order returns every definition with included snippets before their includers.
func (d *DAG) Order() []string {
	return d.order
}

// Dependencies returns the definitions path includes, directly or transitively
// as recorded in the manifest.
func (d *DAG) Dependencies(path string) []string {
	if n, ok := d.nodes[path]; ok {
		return n.edges
	}
	return nil
}

// Dependents returns the definitions that include path.
func (d *DAG) Dependents(path string) []string {
	if n, ok := d.nodes[path]; ok {
		return n.revEdges
	}
	return nil
}

// TransitiveDependents returns every definition reachable over reverse edges
// from path, sorted.
func (d *DAG) TransitiveDependents(path string) []string {
	seen := map[string]bool{path: true}
	queue := []string{path}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range d.Dependents(cur) {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
				queue = append(queue, dep)
			}
		}
	}
	sort.Strings(out)
	return out
}

// topoSort performs Kahn's algorithm; ties are broken by path.
func (d *DAG) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	var queue []string
	for path, n := range d.nodes {
		inDegree[path] = len(n.edges)
		if len(n.edges) == 0 {
			queue = append(queue, path)
		}
	}
	sort.Strings(queue)

	var sorted []string
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		sorted = append(sorted, path)

		for _, dependent := range d.nodes[path].revEdges {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("dependency cycle detected in definition graph")
	}
	return sorted, nil
}

// DOT renders the graph in Graphviz format. Snippets are drawn as boxes.
func (d *DAG) DOT() string {
	var b strings.Builder
	b.WriteString("digraph prompts {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, path := range d.order {
		shape := "ellipse"
		if d.nodes[path].snippet {
			shape = "box"
		}
		fmt.Fprintf(&b, "  %q [shape=%s];\n", path, shape)
	}
	for _, path := range d.order {
		for _, dep := range d.nodes[path].edges {
			fmt.Fprintf(&b, "  %q -> %q;\n", path, dep)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Graph resolves the current sources and builds their dependency graph.
// Definitions that fail to resolve are reported and left out.
func (e *Engine) Graph(files []*ir.SourceFile) (*DAG, []ir.Diagnostic) {
	m := &ir.Manifest{Files: make(map[string]ir.ManifestEntry, len(files))}
	var diags []ir.Diagnostic
	for _, f := range files {
		def, res, err := e.load(f)
		if err == nil {
			var deps []string
			deps, err = e.relativeDeps(res.Dependencies)
			if err == nil {
				m.Files[f.RelPath] = ir.ManifestEntry{Snippet: def.Snippet, Dependencies: deps}
				continue
			}
		}
		diags = append(diags, ir.NewDiagnostic(f.RelPath, err))
	}

	dag, err := BuildDAG(m)
	if err != nil {
		// Resolution already rejects cycles, so this only happens on a
		// corrupted graph.
		return &DAG{nodes: map[string]*dagNode{}}, append(diags, ir.Diagnostic{Message: err.Error(), Kind: ir.DiagCircular})
	}
	return dag, diags
}

// reverseEdges maps each recorded dependency to the definitions that list it.
func reverseEdges(m *ir.Manifest) map[string][]string {
	rev := make(map[string][]string)
	if m == nil {
		return rev
	}
	for path, entry := range m.Files {
		for _, dep := range entry.Dependencies {
			rev[dep] = append(rev[dep], path)
		}
	}
	for dep := range rev {
		sort.Strings(rev[dep])
	}
	return rev
}
