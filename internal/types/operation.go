package types

type OperationAction string

const (
	OperationActionCreate OperationAction = "create"
	OperationActionEdit   OperationAction = "edit"
	OperationActionView   OperationAction = "view"
)

func (a OperationAction) Valid() bool {
	switch a {
	case OperationActionCreate, OperationActionEdit, OperationActionView:
		return true
	default:
		return false
	}
}

type ColumnData struct {
	Name           string `json:"name"`
	DataType       string `json:"data_type,omitempty"`
	TranslatedType string `json:"translated_type,omitempty"`
}

type InputModel struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name,omitempty"`
	Schema string `json:"schema,omitempty"`
}

// RenameConfig is the persisted shape of a rename-columns operation.
type RenameConfig struct {
	Columns       map[string]string `json:"columns"`
	SourceColumns []string          `json:"source_columns"`
}

// OperationConfigEnvelope wraps the operation-specific config together with
// the models feeding the operation.
type OperationConfigEnvelope struct {
	Type        string       `json:"type,omitempty"`
	Config      RenameConfig `json:"config"`
	InputModels []InputModel `json:"input_models"`
}

// OperationNodeData is returned by the operation detail endpoint.
type OperationNodeData struct {
	ID         string                  `json:"id,omitempty"`
	OutputCols []string                `json:"output_cols,omitempty"`
	Config     OperationConfigEnvelope `json:"config"`
}

// OperationPayload is the create/update request body.
type OperationPayload struct {
	OpType          string           `json:"op_type" validate:"required"`
	SourceColumns   []string         `json:"source_columns" validate:"dive,required"`
	OtherInputs     []any            `json:"other_inputs"`
	Config          OperationColumns `json:"config"`
	InputUUID       string           `json:"input_uuid" validate:"omitempty,uuid"`
	TargetModelUUID string           `json:"target_model_uuid" validate:"omitempty,uuid"`
}

type OperationColumns struct {
	Columns map[string]string `json:"columns" validate:"min=1,dive,keys,required,endkeys,required"`
}

// OperationNode is what create/update return; it feeds operation chaining.
type OperationNode struct {
	ID            string   `json:"id"`
	OutputCols    []string `json:"output_cols"`
	TargetModelID string   `json:"target_model_id,omitempty"`
	SeqNum        int      `json:"seq,omitempty"`
	OperationType string   `json:"type,omitempty"`
	IsLastInChain bool     `json:"is_last_in_chain,omitempty"`
}
