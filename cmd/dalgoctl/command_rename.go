package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"dalgoctl/internal/logging"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/types"
)

type RenameCommand struct {
	deps commandDeps
}

func NewRenameCommand(deps commandDeps) *RenameCommand {
	return &RenameCommand{deps: deps}
}

type nodeFlags struct {
	id       string
	file     string
	schema   string
	table    string
	sourceID string
	targetID string
}

// describesNode reports whether the flags carry a node rather than point at
// a remembered one.
func (nf nodeFlags) describesNode() bool {
	return strings.TrimSpace(nf.file) != "" || strings.TrimSpace(nf.schema) != "" || strings.TrimSpace(nf.table) != ""
}

func (c *RenameCommand) Run(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	var nf nodeFlags
	fs.StringVar(&nf.id, "node", "", "remembered node id to start from (default: last saved node)")
	fs.StringVar(&nf.file, "node-file", "", "path to a node JSON document")
	fs.StringVar(&nf.schema, "schema", "", "source model schema")
	fs.StringVar(&nf.table, "table", "", "source model table")
	fs.StringVar(&nf.sourceID, "id", "", "source model node id")
	fs.StringVar(&nf.targetID, "target", "", "target model id")
	modeFlag := fs.String("mode", string(types.OperationActionCreate), "form mode: create|edit|view")
	mapPath := fs.String("map", "", "YAML or TOML file mapping old to new column names")
	var pairs stringList
	fs.Var(&pairs, "pair", "old=new column rename (repeatable)")
	dryRun := fs.Bool("dry-run", false, "print the request body instead of saving")
	replace := fs.Bool("replace", false, "in edit mode, send only the given columns instead of merging them over the saved ones")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode := types.OperationAction(strings.ToLower(strings.TrimSpace(*modeFlag)))
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be create, edit or view", *modeFlag)
	}

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer session.Close()

	node, err := resolveNode(ctx, session, nf)
	if err != nil {
		return err
	}
	if nf.describesNode() && !node.IsDummy {
		if _, err := session.repo.Nodes().Upsert(ctx, node); err != nil {
			session.logger.Warn("could not remember node", logging.F("node_id", node.ID), logging.F("error", err.Error()))
		}
	}
	form := opform.New(node, mode, opform.Options{
		Backend:  session.client,
		Notifier: cliNotifier{out: io.Discard},
		Logger:   session.logger,
	})
	if err := initForm(ctx, form); err != nil {
		return err
	}
	fmt.Fprintln(c.deps.stdout, opform.ChainLine(form.Node(), form.Operation(), form.Mode()))

	if form.ReadOnly() {
		return printFormMapping(c.deps.stdout, form)
	}

	rows, err := collectRows(*mapPath, pairs)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		if mode == types.OperationActionEdit {
			fmt.Fprintln(c.deps.stdout, "nothing to change; current mapping:")
			return printFormMapping(c.deps.stdout, form)
		}
		return errors.New("no columns given; use --map or --pair")
	}
	if mode == types.OperationActionEdit && !*replace {
		rows = form.Rows().Merge(rows)
	}
	if err := form.SetRows(rows); err != nil {
		return err
	}

	if *dryRun {
		payload, err := form.Payload()
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(c.deps.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	saved, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if saved == nil || strings.TrimSpace(saved.ID) == "" {
		fmt.Fprintln(c.deps.stdout, "saved")
		return nil
	}
	next := types.NodeFromOperation(saved)
	if err := rememberNode(ctx, session, next); err != nil {
		session.logger.Warn("could not remember saved node", logging.F("node_id", next.ID), logging.F("error", err.Error()))
	}
	fmt.Fprintf(c.deps.stdout, "saved %s\n", saved.ID)
	if len(saved.OutputCols) > 0 {
		fmt.Fprintf(c.deps.stdout, "output columns: %s\n", strings.Join(saved.OutputCols, ", "))
	}
	fmt.Fprintf(c.deps.stdout, "next: %s\n", opform.ChainLine(next, form.Operation(), types.OperationActionCreate))
	return nil
}

// initForm runs the form's initial fetch and reports its error, which the
// interactive console only logs.
func initForm(ctx context.Context, form *opform.Controller) error {
	fn := form.BeginInit()
	if fn == nil {
		return nil
	}
	res := fn(ctx)
	form.FinishInit(res)
	return res.Err
}

func collectRows(mapPath string, pairs []string) (opform.Rows, error) {
	var rows opform.Rows
	if strings.TrimSpace(mapPath) != "" {
		loaded, err := opform.LoadMappingFile(mapPath)
		if err != nil {
			return nil, err
		}
		rows = append(rows, loaded...)
	}
	parsed, err := opform.ParsePairs(pairs)
	if err != nil {
		return nil, err
	}
	return append(rows, parsed...), nil
}

func printFormMapping(out io.Writer, form *opform.Controller) error {
	if source := form.SourceColumns(); len(source) > 0 {
		fmt.Fprintf(out, "source columns: %s\n", strings.Join(source, ", "))
	}
	data, err := opform.MappingYAML(form.Rows())
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// resolveNode picks the node a form starts from: a node file, an inline
// source model, a remembered id, or the last saved node.
func resolveNode(ctx context.Context, session *commandSession, nf nodeFlags) (types.Node, error) {
	switch {
	case strings.TrimSpace(nf.file) != "":
		return readNodeFile(nf.file)
	case strings.TrimSpace(nf.schema) != "" || strings.TrimSpace(nf.table) != "":
		if strings.TrimSpace(nf.table) == "" || strings.TrimSpace(nf.sourceID) == "" {
			return types.Node{}, errors.New("a source model needs --table and --id")
		}
		return types.Node{
			ID:            strings.TrimSpace(nf.sourceID),
			Type:          types.NodeTypeSourceModel,
			Schema:        strings.TrimSpace(nf.schema),
			InputName:     strings.TrimSpace(nf.table),
			TargetModelID: strings.TrimSpace(nf.targetID),
		}, nil
	}
	id := strings.TrimSpace(nf.id)
	if id == "" {
		state, err := session.repo.ConsoleState().Load(ctx)
		if err != nil {
			return types.Node{}, err
		}
		id = strings.TrimSpace(state.LastNodeID)
		if id == "" {
			return types.Node{}, errors.New("no node given; use --node, --node-file or --schema/--table/--id")
		}
	}
	record, ok, err := session.repo.Nodes().Get(ctx, id)
	if err != nil {
		return types.Node{}, err
	}
	if !ok {
		return types.Node{}, fmt.Errorf("node %s is not remembered; use --node-file or --schema/--table/--id", id)
	}
	return record.Node, nil
}

func readNodeFile(path string) (types.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Node{}, err
	}
	var node types.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return types.Node{}, fmt.Errorf("parse node file: %w", err)
	}
	nodeType, ok := types.NormalizeNodeType(string(node.Type))
	if !ok {
		return types.Node{}, fmt.Errorf("node file: unknown node type %q", node.Type)
	}
	node.Type = nodeType
	if strings.TrimSpace(node.ID) == "" && !node.IsDummy {
		return types.Node{}, errors.New("node file: id is required")
	}
	return node, nil
}

// rememberNode stores node and makes it the last node, keeping the rest of
// the console state.
func rememberNode(ctx context.Context, session *commandSession, node types.Node) error {
	if _, err := session.repo.Nodes().Upsert(ctx, node); err != nil {
		return err
	}
	states := session.repo.ConsoleState()
	current, err := states.Load(ctx)
	if err != nil {
		return err
	}
	next := types.CloneConsoleState(current)
	next.LastNodeID = node.ID
	return states.Save(ctx, next)
}

type NodesCommand struct {
	deps commandDeps
}

func NewNodesCommand(deps commandDeps) *NodesCommand {
	return &NodesCommand{deps: deps}
}

func (c *NodesCommand) Run(args []string) error {
	fs := flag.NewFlagSet("nodes", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	forget := fs.String("forget", "", "node id to forget")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, err := c.deps.loadConfig()
	if err != nil {
		return err
	}
	repo, err := c.deps.openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if id := strings.TrimSpace(*forget); id != "" {
		if err := repo.Nodes().Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.deps.stdout, "forgot %s\n", id)
		return nil
	}
	records, err := repo.Nodes().List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(c.deps.stdout, "No remembered nodes.")
		return nil
	}
	printNodes(c.deps.stdout, records)
	return nil
}
