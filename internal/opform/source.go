package opform

import (
	"context"
	"errors"
	"sort"

	"dalgoctl/internal/types"
)

// ColumnSource yields the columns available as input to an operation.
type ColumnSource interface {
	SourceColumns(ctx context.Context) ([]string, error)
}

type ColumnLookup interface {
	GetTableColumns(ctx context.Context, schema, inputName string) ([]types.ColumnData, error)
}

// SchemaLookupSource reads the columns of a source model from the warehouse.
type SchemaLookupSource struct {
	Lookup    ColumnLookup
	Schema    string
	InputName string
}

func (s SchemaLookupSource) SourceColumns(ctx context.Context) ([]string, error) {
	if s.Lookup == nil {
		return nil, errors.New("column lookup is not configured")
	}
	cols, err := s.Lookup.GetTableColumns(ctx, s.Schema, s.InputName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	sort.Strings(names)
	return names, nil
}

// UpstreamOperationSource uses the declared outputs of the previous operation.
type UpstreamOperationSource struct {
	OutputCols []string
}

func (s UpstreamOperationSource) SourceColumns(context.Context) ([]string, error) {
	return append([]string{}, s.OutputCols...), nil
}

// SourceForNode picks the column source matching the node type. It returns
// nil for nodes that have no columns of their own.
func SourceForNode(node types.Node, lookup ColumnLookup) ColumnSource {
	switch node.Type {
	case types.NodeTypeSourceModel:
		return SchemaLookupSource{Lookup: lookup, Schema: node.Schema, InputName: node.InputName}
	case types.NodeTypeOperation:
		return UpstreamOperationSource{OutputCols: node.OutputCols}
	default:
		return nil
	}
}
