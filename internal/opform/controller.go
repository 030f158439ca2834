package opform

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"dalgoctl/internal/client"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/types"
)

var (
	ErrBusy     = errors.New("operation form is busy")
	ErrReadOnly = errors.New("operation form is read-only")
	ErrNoParent = errors.New("dummy node has no parent node")
)

// Backend is the slice of the API client the form needs.
type Backend interface {
	ColumnLookup
	GetOperation(ctx context.Context, nodeID string) (*types.OperationNodeData, error)
	CreateOperation(ctx context.Context, payload types.OperationPayload) (*types.OperationNode, error)
	UpdateOperation(ctx context.Context, nodeID string, payload types.OperationPayload) (*types.OperationNode, error)
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// FocusHook lets a UI move focus after row edits.
type FocusHook func(row int, field Field)

type Options struct {
	Backend   Backend
	Notifier  Notifier
	Logger    logging.Logger
	Operation Operation
	// Source overrides the column source derived from the node type.
	Source ColumnSource
	// OnSaved receives the created or updated node so a chain can continue.
	OnSaved   func(*types.OperationNode)
	FocusHook FocusHook
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// Controller holds the state of one operation editor. It is not safe for
// concurrent use; async callers run the Begin step, do the I/O elsewhere and
// hand the result back to the Finish step on the owning goroutine.
type Controller struct {
	backend   Backend
	notifier  Notifier
	logger    logging.Logger
	op        Operation
	source    ColumnSource
	onSaved   func(*types.OperationNode)
	focusHook FocusHook

	node types.Node
	mode types.OperationAction

	rows          Rows
	sourceColumns []string
	inputModels   []types.InputModel
	violations    []Violation
	loading       bool
}

func New(node types.Node, mode types.OperationAction, opts Options) *Controller {
	if !mode.Valid() {
		mode = types.OperationActionCreate
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Operation == nil {
		opts.Operation = RenameColumns{}
	}
	if opts.Source == nil && opts.Backend != nil {
		opts.Source = SourceForNode(node, opts.Backend)
	}
	return &Controller{
		backend:   opts.Backend,
		notifier:  opts.Notifier,
		logger:    opts.Logger.With(logging.F("component", "opform"), logging.F("op", opts.Operation.Slug())),
		op:        opts.Operation,
		source:    opts.Source,
		onSaved:   opts.OnSaved,
		focusHook: opts.FocusHook,
		node:      node,
		mode:      mode,
		rows:      BlankRows(),
	}
}

func (c *Controller) Node() types.Node            { return c.node }
func (c *Controller) Mode() types.OperationAction { return c.mode }
func (c *Controller) Operation() Operation        { return c.op }
func (c *Controller) Loading() bool               { return c.loading }
func (c *Controller) ReadOnly() bool              { return c.mode == types.OperationActionView }
func (c *Controller) Rows() Rows                  { return c.rows.Clone() }
func (c *Controller) SourceColumns() []string     { return append([]string{}, c.sourceColumns...) }
func (c *Controller) InputModels() []types.InputModel {
	return append([]types.InputModel{}, c.inputModels...)
}
func (c *Controller) Violations() []Violation { return append([]Violation{}, c.violations...) }
func (c *Controller) CanAdd() bool            { return !c.ReadOnly() && c.rows.CanAdd(len(c.sourceColumns)) }
func (c *Controller) Options(i int) []string  { return c.rows.Options(i, c.sourceColumns) }

// InitResult carries what the init fetch returned.
type InitResult struct {
	Config  *types.OperationNodeData
	Columns []string
	Err     error
}

// BeginInit prepares the initial fetch. It returns nil when the form has
// nothing to load, which is the case for dummy nodes.
func (c *Controller) BeginInit() func(context.Context) InitResult {
	if c.node.IsDummy {
		return nil
	}
	switch c.mode {
	case types.OperationActionEdit, types.OperationActionView:
		if c.backend == nil {
			return nil
		}
		c.loading = true
		backend, nodeID := c.backend, c.node.ID
		return func(ctx context.Context) InitResult {
			data, err := backend.GetOperation(ctx, nodeID)
			return InitResult{Config: data, Err: err}
		}
	default:
		if c.source == nil {
			return nil
		}
		source := c.source
		return func(ctx context.Context) InitResult {
			cols, err := source.SourceColumns(ctx)
			return InitResult{Columns: cols, Err: err}
		}
	}
}

// FinishInit applies the init fetch. Errors are logged and leave the form in
// whatever state it already had.
func (c *Controller) FinishInit(res InitResult) {
	c.loading = false
	if res.Err != nil {
		c.logger.Warn("operation form init failed",
			logging.F("node_id", c.node.ID),
			logging.F("mode", string(c.mode)),
			logging.F("error", res.Err.Error()),
		)
		return
	}
	if res.Config != nil {
		c.inputModels = append([]types.InputModel{}, res.Config.Config.InputModels...)
		c.rows, c.sourceColumns = c.op.Hydrate(res.Config.Config.Config)
		return
	}
	c.sourceColumns = append([]string{}, res.Columns...)
}

func (c *Controller) Init(ctx context.Context) {
	if fn := c.BeginInit(); fn != nil {
		c.FinishInit(fn(ctx))
	}
}

func (c *Controller) SetOld(i int, value string) error {
	if err := c.editable(i); err != nil {
		return err
	}
	c.rows[i].Old = value
	c.focus(i, FieldNew)
	return nil
}

func (c *Controller) SetNew(i int, value string) error {
	if err := c.editable(i); err != nil {
		return err
	}
	c.rows[i].New = value
	return nil
}

// SetRows replaces every row, for imports.
func (c *Controller) SetRows(rows Rows) error {
	if c.ReadOnly() {
		return ErrReadOnly
	}
	c.rows = rows.Clone()
	if len(c.rows) == 0 {
		c.rows = BlankRows()
	}
	c.violations = nil
	return nil
}

// Append adds a blank row when CanAdd allows it and reports whether it did.
func (c *Controller) Append() (bool, error) {
	if c.ReadOnly() {
		return false, ErrReadOnly
	}
	if !c.CanAdd() {
		return false, nil
	}
	c.rows = append(c.rows, Row{})
	c.focus(len(c.rows)-1, FieldOld)
	return true, nil
}

func (c *Controller) Remove(i int) error {
	if err := c.editable(i); err != nil {
		return err
	}
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	return nil
}

func (c *Controller) editable(i int) error {
	if c.ReadOnly() {
		return ErrReadOnly
	}
	if i < 0 || i >= len(c.rows) {
		return fmt.Errorf("row %d out of range", i)
	}
	return nil
}

func (c *Controller) focus(row int, field Field) {
	if c.focusHook != nil {
		c.focusHook(row, field)
	}
}

// Target resolves where a save lands: a dummy node saves as a new operation
// on its parent.
func (c *Controller) Target() (types.Node, types.OperationAction, error) {
	if !c.node.IsDummy {
		return c.node, c.mode, nil
	}
	if c.node.ParentNode == nil {
		return types.Node{}, "", ErrNoParent
	}
	return *c.node.ParentNode, types.OperationActionCreate, nil
}

// Payload validates the rows and builds the request body without sending it.
func (c *Controller) Payload() (types.OperationPayload, error) {
	violations := append(Validate(c.rows), ValidateSources(c.rows, c.sourceColumns)...)
	if len(violations) > 0 {
		return types.OperationPayload{}, &ValidationError{Violations: violations}
	}
	target, action, err := c.Target()
	if err != nil {
		return types.OperationPayload{}, err
	}
	source := c.sourceColumns
	if source == nil {
		source = []string{}
	}
	payload := types.OperationPayload{
		OpType:          c.op.Slug(),
		SourceColumns:   append([]string{}, source...),
		OtherInputs:     []any{},
		Config:          c.op.Normalize(c.rows),
		TargetModelUUID: target.TargetModelID,
	}
	if target.IsSourceModel() {
		payload.InputUUID = target.ID
	}
	if action == types.OperationActionEdit {
		payload.InputUUID = ""
		if len(c.inputModels) > 0 {
			payload.InputUUID = c.inputModels[0].UUID
		}
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return types.OperationPayload{}, payloadViolations(err)
	}
	return payload, nil
}

func payloadViolations(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, Violation{
			Row:     -1,
			Message: fmt.Sprintf("%s failed the %q check", fe.Namespace(), fe.Tag()),
		})
	}
	return &ValidationError{Violations: violations}
}

// SubmitResult carries what the create or update call returned.
type SubmitResult struct {
	Node *types.OperationNode
	Err  error
}

// BeginSubmit validates, builds the payload and marks the form loading. The
// returned function performs the request and touches no form state.
func (c *Controller) BeginSubmit() (func(context.Context) SubmitResult, error) {
	if c.loading {
		return nil, ErrBusy
	}
	if c.ReadOnly() {
		return nil, ErrReadOnly
	}
	if c.backend == nil {
		return nil, errors.New("operation backend is not configured")
	}
	payload, err := c.Payload()
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.violations = verr.Violations
		}
		return nil, err
	}
	target, action, _ := c.Target()
	c.violations = nil
	c.loading = true
	backend := c.backend
	return func(ctx context.Context) SubmitResult {
		var (
			node *types.OperationNode
			err  error
		)
		if action == types.OperationActionEdit {
			node, err = backend.UpdateOperation(ctx, target.ID, payload)
		} else {
			node, err = backend.CreateOperation(ctx, payload)
		}
		return SubmitResult{Node: node, Err: err}
	}, nil
}

// FinishSubmit clears loading on every path. A failure keeps the rows and
// raises an error toast; a success hands the node on and resets the form.
func (c *Controller) FinishSubmit(res SubmitResult) error {
	c.loading = false
	if res.Err != nil {
		c.logger.Warn("operation save failed",
			logging.F("node_id", c.node.ID),
			logging.F("error", res.Err.Error()),
		)
		c.notifier.Error(client.UserMessage(res.Err))
		return res.Err
	}
	c.logger.Info("operation saved", logging.F("node_id", nodeID(res.Node)))
	if c.onSaved != nil {
		c.onSaved(res.Node)
	}
	c.rows = BlankRows()
	return nil
}

func (c *Controller) Submit(ctx context.Context) (*types.OperationNode, error) {
	fn, err := c.BeginSubmit()
	if err != nil {
		return nil, err
	}
	res := fn(ctx)
	if err := c.FinishSubmit(res); err != nil {
		return nil, err
	}
	return res.Node, nil
}

func nodeID(node *types.OperationNode) string {
	if node == nil {
		return ""
	}
	return node.ID
}
