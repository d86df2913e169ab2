package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// Markers shown after a block header.
const (
	DisabledMarker = "[disabled]"
	emptyBranch    = "(no blocks)"
)

// Renderer writes a textual view of blocks. Evaluations holds condition
// outcomes by block id; a condition without one has both branches disabled.
type Renderer struct {
	Evaluations map[string]*ConditionResult
}

// Render writes block with the default renderer.
func Render(w io.Writer, block api.Block, enabled bool) {
	(&Renderer{}).Render(w, block, enabled)
}

// Render writes block and, for conditions, both branches recursively.
func (r *Renderer) Render(w io.Writer, block api.Block, enabled bool) {
	r.render(w, &block, enabled, 0)
}

// RenderAll writes a list of sibling blocks.
func (r *Renderer) RenderAll(w io.Writer, blocks []api.Block, enabled bool) {
	for i := range blocks {
		r.render(w, &blocks[i], enabled, 0)
	}
}

// RenderHeader writes the block header and its description at the given
// nesting depth, plus the evaluation line of an evaluated condition.
// Branches are not written.
func (r *Renderer) RenderHeader(w io.Writer, block api.Block, enabled bool, depth int) {
	r.header(w, &block, enabled, depth)
}

func (r *Renderer) header(w io.Writer, b *api.Block, enabled bool, depth int) {
	indent := strings.Repeat(constants.DefaultBlockIndent, depth*2)
	body := indent + constants.DefaultBlockIndent + constants.DefaultBlockIndent

	header := fmt.Sprintf("%s%d. %s (%s)", indent, b.Order, b.DisplayName(), b.Type)
	if !enabled {
		header += " " + DisabledMarker
	}
	_, _ = fmt.Fprintln(w, header)

	for _, line := range Describe(b) {
		_, _ = fmt.Fprintln(w, body+line)
	}

	if eval := r.Evaluations[b.ID]; eval != nil && b.Condition() != nil {
		_, _ = fmt.Fprintln(w, body+eval.Text)
	}
}

func (r *Renderer) render(w io.Writer, b *api.Block, enabled bool, depth int) {
	r.header(w, b, enabled, depth)

	cond := b.Condition()
	if cond == nil {
		return
	}

	body := strings.Repeat(constants.DefaultBlockIndent, depth*2+2)
	eval := r.Evaluations[b.ID]
	for _, branch := range []api.Branch{api.BranchThen, api.BranchElse} {
		branchEnabled := enabled && eval.Enabled(branch)
		label := "If true:"
		if branch == api.BranchElse {
			label = "Else (if false):"
		}
		if !branchEnabled {
			label += " " + DisabledMarker
		}
		_, _ = fmt.Fprintln(w, body+label)

		blocks := cond.Blocks(branch)
		if len(blocks) == 0 {
			_, _ = fmt.Fprintln(w, body+constants.DefaultBlockIndent+emptyBranch)
			continue
		}
		for i := range blocks {
			r.render(w, &blocks[i], branchEnabled, depth+1)
		}
	}
}

// Describe returns the type-specific lines shown under a block header.
func Describe(b *api.Block) []string {
	switch c := b.Config.(type) {
	case *api.InstructionConfig:
		if strings.TrimSpace(c.Text) == "" {
			return nil
		}
		return strings.Split(strings.TrimRight(c.Text, "\n"), "\n")
	case *api.CommandConfig:
		return []string{"$ " + c.Command}
	case *api.APIConfig:
		line := c.HTTPMethod() + " " + c.URL
		if c.CredentialID != "" {
			line += " (credential " + c.CredentialID + ")"
		}
		return []string{line}
	case *api.SSHConfig:
		return []string{fmt.Sprintf("ssh %s@%s: %s", c.Username, c.Host, c.Command)}
	case *api.TimerConfig:
		return []string{"wait " + c.Duration.Seconds().String()}
	case *api.ConditionConfig:
		return []string{describeCondition(c)}
	case *api.UnsupportedConfig:
		return []string{fmt.Sprintf("Unsupported block type: %s", c.Kind)}
	default:
		return nil
	}
}

func describeCondition(c *api.ConditionConfig) string {
	switch c.Check() {
	case api.ConditionAPIStatusCode:
		return fmt.Sprintf("if GET %s returns %d", c.CheckURL, c.ExpectedStatus())
	case api.ConditionFileExists:
		return fmt.Sprintf("if file %s exists", c.FilePath)
	case api.ConditionEnvVarEquals:
		return fmt.Sprintf("if $%s == %q", c.EnvVarName, c.EnvVarValue)
	case api.ConditionCommandExitCode:
		return fmt.Sprintf("if $ %s exits with %d", c.CheckCommand, int(c.ExpectedExitCode))
	default:
		return fmt.Sprintf("unknown condition type %q", c.ConditionType)
	}
}
