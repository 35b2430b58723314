// Package workflow executes directed graphs of typed LLM processing nodes.
//
// A Graph is a set of named nodes. Each node carries a NodeType and edges
// to successor nodes; an edge may be conditional on the discriminator tag
// the node's handler returns (validity-check nodes branch this way). The
// Executor walks the graph from the root, accumulating params, until it
// reaches a node with no matching outgoing edge or an unrecoverable
// failure.
package workflow

import (
	"fmt"

	"github.com/copilot-ai/copilot/pkg/types"
)

// NodeType tags a node with its handler. The set is closed: execution
// dispatches through a lookup table keyed by these tags.
type NodeType string

const (
	NodeChat      NodeType = "chat"
	NodeImage     NodeType = "image"
	NodeCheckHTML NodeType = "check-html"
	NodeCheckJSON NodeType = "check-json"
)

// Params is the accumulated variable mapping threaded through an execution.
type Params map[string]any

// Clone copies the mapping one level deep.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Edge points at a successor node. When is matched against the handler's
// returned discriminator tag; an empty When matches any tag.
type Edge struct {
	To   string
	When string
}

// Node is one step of a graph.
type Node struct {
	ID   string
	Type NodeType

	// PromptName names the prompt template for chat and image nodes.
	PromptName string

	// Output selects the completion shape for chat nodes. Empty means text.
	Output types.OutputType

	// ParamKey is where the node's output lands in the accumulated params.
	// Check nodes read their input from it instead. Empty means "content".
	ParamKey string

	Edges []Edge
}

// Key returns the node's effective param key.
func (n *Node) Key() string {
	if n.ParamKey != "" {
		return n.ParamKey
	}
	return "content"
}

// Graph is a named workflow definition.
type Graph struct {
	Name  string
	Root  string
	Nodes map[string]*Node
}

// Validate checks the graph is executable: the root exists and every edge
// resolves to a known node.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("graph %s has no nodes", g.Name)
	}
	if _, ok := g.Nodes[g.Root]; !ok {
		return fmt.Errorf("graph %s: root node %q not defined", g.Name, g.Root)
	}

	for id, node := range g.Nodes {
		if node.ID != id {
			return fmt.Errorf("graph %s: node %q registered under key %q", g.Name, node.ID, id)
		}
		switch node.Type {
		case NodeChat, NodeImage, NodeCheckHTML, NodeCheckJSON:
		default:
			return fmt.Errorf("graph %s: node %q has unknown type %q", g.Name, id, node.Type)
		}
		for _, edge := range node.Edges {
			if _, ok := g.Nodes[edge.To]; !ok {
				return fmt.Errorf("graph %s: node %q points at undefined node %q", g.Name, id, edge.To)
			}
		}
	}
	return nil
}

// next resolves the successor for a returned tag: the first edge whose When
// is empty or equals the tag. Returns false when no edge matches, which
// terminates the run.
func (n *Node) next(tag string) (string, bool) {
	for _, edge := range n.Edges {
		if edge.When == "" || edge.When == tag {
			return edge.To, true
		}
	}
	return "", false
}
