package opform

import (
	"fmt"
	"strings"

	"dalgoctl/internal/types"
)

// ChainLine describes where an operation sits, e.g.
// "staging.orders → Rename columns (create)".
func ChainLine(node types.Node, op Operation, mode types.OperationAction) string {
	if op == nil {
		op = RenameColumns{}
	}
	from := node.Label()
	if node.IsDummy && node.ParentNode != nil {
		from = node.ParentNode.Label()
		mode = types.OperationActionCreate
	}
	if strings.TrimSpace(from) == "" {
		from = "(unsaved)"
	}
	return fmt.Sprintf("%s → %s (%s)", from, op.Label(), mode)
}
