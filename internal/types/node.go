package types

import (
	"strings"
	"time"
)

type NodeType string

const (
	NodeTypeSourceModel NodeType = "src_model"
	NodeTypeOperation   NodeType = "operation"
)

// Node is a graph-editor element: either a source model or an operation.
type Node struct {
	ID            string   `json:"id"`
	Type          NodeType `json:"type"`
	IsDummy       bool     `json:"is_dummy,omitempty"`
	Schema        string   `json:"schema,omitempty"`
	InputName     string   `json:"input_name,omitempty"`
	OutputCols    []string `json:"output_cols,omitempty"`
	TargetModelID string   `json:"target_model_id,omitempty"`
	// ParentNode is set on dummy nodes; a dummy resolves to it on first save.
	ParentNode *Node `json:"parent_node,omitempty"`
}

func (n *Node) IsSourceModel() bool {
	return n != nil && n.Type == NodeTypeSourceModel
}

func (n *Node) IsOperation() bool {
	return n != nil && n.Type == NodeTypeOperation
}

func (n *Node) Label() string {
	if n == nil {
		return ""
	}
	if n.IsSourceModel() {
		name := strings.TrimSpace(n.InputName)
		if schema := strings.TrimSpace(n.Schema); schema != "" {
			return schema + "." + name
		}
		return name
	}
	return n.ID
}

func NormalizeNodeType(raw string) (NodeType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "src_model", "source", "source_model":
		return NodeTypeSourceModel, true
	case "operation", "op", "operation_node":
		return NodeTypeOperation, true
	default:
		return "", false
	}
}

// NodeRecord is a node remembered locally so later commands can chain from it.
type NodeRecord struct {
	Node      Node      `json:"node"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeFromOperation turns a saved operation into the node the next operation
// in the chain hangs off.
func NodeFromOperation(op *OperationNode) Node {
	if op == nil {
		return Node{}
	}
	return Node{
		ID:            op.ID,
		Type:          NodeTypeOperation,
		OutputCols:    append([]string{}, op.OutputCols...),
		TargetModelID: op.TargetModelID,
	}
}
