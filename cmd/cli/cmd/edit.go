package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/editor"
	"github.com/opsbook/opsbook/internal/logger"
)

// Edit actions.
const (
	editAdd       = "add"
	editAddNested = "add-nested"
	editDelete    = "delete"
	editMove      = "move"
	editSetBlock  = "set-block"
	editSet       = "set"
)

var editCmd = &cobra.Command{
	Use:   "edit <runbook-id> <add|add-nested|delete|move|set-block|set> [args...]",
	Short: "Edit the blocks and details of a runbook",
	Long: `Edit the blocks and details of a runbook.
Each invocation loads the runbook, applies one change and saves it.

  add <type>                          append a block
  add-nested <parent-id> <branch> <type>
                                      append a block to a condition branch (then or else)
  delete <block-id> [--parent id]     remove a block
  move <from> <to> [--parent id --branch b]
                                      reorder blocks, positions start at 1
  set-block <block-id> [--name n] [--set key=value]...
                                      change a block's name and settings
  set [--title --description --tags --environment]
                                      change the runbook details`,
	Example: fmt.Sprintf(`  - %[1]s edit 1f0c... add command
  - %[1]s edit 1f0c... set-block 9ab2... --name "Restart" --set command="systemctl restart api"
  - %[1]s edit 1f0c... add-nested 77de... else instruction
  - %[1]s edit 1f0c... move 3 1
  - %[1]s edit 1f0c... set --title "Restart API" --tags prod,api`, constants.ProjectName),
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		opts := EditOptions{
			Parent:   editParent,
			Branch:   editBranch,
			Settings: editSettings,
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			opts.Name = &editName
		}
		if flags.Changed("title") {
			opts.Title = &editTitle
		}
		if flags.Changed("description") {
			opts.Description = &editDescription
		}
		if flags.Changed("tags") {
			opts.Tags = &editTags
		}
		if flags.Changed("environment") {
			opts.Environment = &editEnvironment
		}

		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEditService(c, NewOutputWrapper()).Run(ctx, args[0], args[1], args[2:], opts)
		})
	},
}

var (
	editParent      string
	editBranch      string
	editName        string
	editSettings    []string
	editTitle       string
	editDescription string
	editTags        []string
	editEnvironment string
)

func init() {
	flags := editCmd.Flags()
	flags.StringVar(&editParent, "parent", "", "Condition block holding the target block")
	flags.StringVar(&editBranch, "branch", "", "Condition branch: then or else")
	flags.StringVar(&editName, "name", "", "Block name (set-block)")
	flags.StringArrayVar(&editSettings, "set", nil, "Block setting as key=value, repeatable (set-block)")
	flags.StringVar(&editTitle, "title", "", "Runbook title (set)")
	flags.StringVar(&editDescription, "description", "", "Runbook description (set)")
	flags.StringSliceVar(&editTags, "tags", nil, "Comma separated tags (set)")
	flags.StringVar(&editEnvironment, "environment", "", "Environment name or ID, empty to clear (set)")

	rootCmd.AddCommand(editCmd)
}

// EditOptions carries the flags of an edit. Nil pointers mean "unchanged".
type EditOptions struct {
	Parent      string
	Branch      string
	Name        *string
	Settings    []string
	Title       *string
	Description *string
	Tags        *[]string
	Environment *string
}

// EditService applies one editor operation to a runbook and saves it
type EditService struct {
	client client.Interface
	output OutputInterface
}

// NewEditService creates a new EditService with the provided dependencies
func NewEditService(apiClient client.Interface, outputter OutputInterface) *EditService {
	return &EditService{
		client: apiClient,
		output: outputter,
	}
}

// Run loads the runbook, applies action and saves the result in one update.
func (s *EditService) Run(ctx context.Context, runbookID, action string, args []string, opts EditOptions) error {
	ed, err := editor.Load(ctx, s.client, runbookID, logger.FromContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to load runbook: %w", err)
	}

	summary, err := s.apply(ed, action, args, opts)
	if err != nil {
		return err
	}

	saved, err := ed.Save(ctx)
	if err != nil {
		return fmt.Errorf("failed to save runbook: %w", err)
	}

	s.output.Successf("%s", summary)
	s.output.KeyValue("Runbook", fmt.Sprintf("%s (version %d)", s.output.Bold(saved.Title), saved.Version))
	return nil
}

func (s *EditService) apply(ed *editor.Editor, action string, args []string, opts EditOptions) (string, error) {
	switch action {
	case editAdd:
		if err := wantArgs(action, args, "<type>"); err != nil {
			return "", err
		}
		t, err := api.ParseBlockType(args[0])
		if err != nil {
			return "", err
		}
		if opts.Parent != "" {
			return s.addNested(ed, opts.Parent, opts.Branch, t)
		}
		block, err := ed.Add(t)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s block %s at position %d", t, block.ID, block.Order), nil

	case editAddNested:
		if err := wantArgs(action, args, "<parent-id>", "<branch>", "<type>"); err != nil {
			return "", err
		}
		t, err := api.ParseBlockType(args[2])
		if err != nil {
			return "", err
		}
		return s.addNested(ed, args[0], args[1], t)

	case editDelete:
		if err := wantArgs(action, args, "<block-id>"); err != nil {
			return "", err
		}
		if opts.Parent != "" {
			if err := ed.DeleteNested(opts.Parent, args[0]); err != nil {
				return "", err
			}
		} else if err := ed.Delete(args[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted block %s", args[0]), nil

	case editMove:
		if err := wantArgs(action, args, "<from>", "<to>"); err != nil {
			return "", err
		}
		from, err := parsePosition(args[0])
		if err != nil {
			return "", err
		}
		to, err := parsePosition(args[1])
		if err != nil {
			return "", err
		}
		if opts.Parent != "" {
			branch, branchErr := api.ParseBranch(opts.Branch)
			if branchErr != nil {
				return "", branchErr
			}
			err = ed.MoveNested(opts.Parent, branch, from, to)
		} else {
			err = ed.Move(from, to)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved block from position %d to %d", from+1, to+1), nil

	case editSetBlock:
		if err := wantArgs(action, args, "<block-id>"); err != nil {
			return "", err
		}
		return s.setBlock(ed, args[0], opts)

	case editSet:
		if err := wantArgs(action, args); err != nil {
			return "", err
		}
		return s.setMetadata(ed, opts)

	default:
		return "", fmt.Errorf("unknown edit action %q (valid: %s)", action,
			strings.Join([]string{editAdd, editAddNested, editDelete, editMove, editSetBlock, editSet}, ", "))
	}
}

func wantArgs(action string, args []string, names ...string) error {
	if len(args) != len(names) {
		usage := strings.TrimSpace(action + " " + strings.Join(names, " "))
		return fmt.Errorf("%s expects %d argument(s): %s", action, len(names), usage)
	}
	return nil
}

func (s *EditService) addNested(ed *editor.Editor, parentID, branchName string, t api.BlockType) (string, error) {
	branch, err := api.ParseBranch(branchName)
	if err != nil {
		return "", err
	}
	block, err := ed.AddNested(parentID, branch, t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s block %s to %s of %s", t, block.ID, branchLabel(branch), parentID), nil
}

func branchLabel(b api.Branch) string {
	if b == api.BranchElse {
		return "else"
	}
	return "then"
}

func (s *EditService) setBlock(ed *editor.Editor, id string, opts EditOptions) (string, error) {
	block, ref, err := api.Find(ed.Blocks(), id)
	if err != nil {
		return "", err
	}
	if opts.Parent != "" {
		branch, branchErr := api.ParseBranch(opts.Branch)
		if branchErr != nil {
			return "", branchErr
		}
		ref = api.BlockRef{ParentID: opts.Parent, Branch: branch, BlockID: id}
	}

	name := block.Name
	if opts.Name != nil {
		name = *opts.Name
	}
	cfg, err := applySettings(block, opts.Settings, ed.Credentials)
	if err != nil {
		return "", err
	}

	if err = ed.Edit(ref, name, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %s block %s", block.Type, id), nil
}

// applySettings overlays key=value pairs on the block's config. Keys must be
// settings of the block's type. Values that are JSON objects or arrays are
// used as is; everything else is a string. A credential_id may name a
// credential instead of giving its id.
func applySettings(block *api.Block, settings []string, credentials []api.Credential) (api.BlockConfig, error) {
	fields := map[string]json.RawMessage{}
	if block.Config != nil {
		current, err := json.Marshal(block.Config)
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(current, &fields); err != nil {
			return nil, err
		}
	}

	for _, setting := range settings {
		key, value, ok := strings.Cut(setting, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: use key=value", setting)
		}
		if key == string(api.BranchThen) || key == string(api.BranchElse) {
			return nil, fmt.Errorf("%s cannot be set directly, use %s", key, editAddNested)
		}
		if key == "credential_id" {
			value = resolveCredential(value, credentials)
		}
		fields[key] = settingValue(value)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	cfg := api.EmptyConfig(block.Type)
	if cfg == nil {
		return nil, fmt.Errorf("unknown block type %q", block.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings for %s block: %w", block.Type, err)
	}
	return cfg, nil
}

func settingValue(value string) json.RawMessage {
	trimmed := strings.TrimSpace(value)
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(value)
	return quoted
}

func resolveCredential(value string, credentials []api.Credential) string {
	for _, c := range credentials {
		if c.Name == value {
			return c.ID
		}
	}
	return value
}

func resolveEnvironment(value string, environments []api.Environment) string {
	for _, e := range environments {
		if e.Name == value {
			return e.ID
		}
	}
	return value
}

func (s *EditService) setMetadata(ed *editor.Editor, opts EditOptions) (string, error) {
	rb := ed.Runbook()
	title, description, tags, environmentID := rb.Title, rb.Description, rb.Tags, rb.EnvironmentID

	if opts.Title != nil {
		title = strings.TrimSpace(*opts.Title)
		if title == "" {
			return "", fmt.Errorf("title cannot be empty")
		}
	}
	if opts.Description != nil {
		description = *opts.Description
	}
	if opts.Tags != nil {
		tags = *opts.Tags
	}
	if opts.Environment != nil {
		environmentID = resolveEnvironment(*opts.Environment, ed.Environments)
	}
	if opts.Title == nil && opts.Description == nil && opts.Tags == nil && opts.Environment == nil {
		return "", fmt.Errorf("nothing to change: pass --title, --description, --tags or --environment")
	}

	ed.SetMetadata(title, description, tags, environmentID)
	return "Updated runbook details", nil
}
