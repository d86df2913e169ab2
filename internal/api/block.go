package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// BlockType is the tag of a block; it decides which config a block carries
// and how it is rendered and executed.
type BlockType string

// Block types understood by the backend.
const (
	BlockInstruction BlockType = "instruction"
	BlockCommand     BlockType = "command"
	BlockAPI         BlockType = "api"
	BlockSSH         BlockType = "ssh"
	BlockTimer       BlockType = "timer"
	BlockCondition   BlockType = "condition"
)

// BlockTypes returns every known block type in display order.
func BlockTypes() []BlockType {
	return []BlockType{BlockInstruction, BlockCommand, BlockAPI, BlockSSH, BlockTimer, BlockCondition}
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return slices.Contains(BlockTypes(), t)
}

// Executable reports whether a block of this type runs with a single
// execution call. Instructions are never executed and conditions are
// evaluated through a probe instead.
func (t BlockType) Executable() bool {
	switch t {
	case BlockCommand, BlockAPI, BlockSSH, BlockTimer:
		return true
	default:
		return false
	}
}

// ParseBlockType converts user input into a BlockType.
func ParseBlockType(s string) (BlockType, error) {
	t := BlockType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown block type %q (valid: %s)", s, joinTypes(BlockTypes()))
	}
	return t, nil
}

func joinTypes(types []BlockType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// BlockConfig is the variant payload of a block. The concrete type always
// matches the block's Type.
type BlockConfig interface {
	BlockType() BlockType
	clone() BlockConfig
}

// Block is one step of a runbook.
type Block struct {
	ID     string
	Type   BlockType
	Name   string
	Order  int
	Config BlockConfig
}

// NewBlock returns a block of the given type with an empty config.
func NewBlock(id string, t BlockType, name string, order int) Block {
	return Block{
		ID:     id,
		Type:   t,
		Name:   name,
		Order:  order,
		Config: EmptyConfig(t),
	}
}

// EmptyConfig returns the zero config for a block type, or nil for an unknown type.
// Blocks of unknown types decoded from the backend carry an UnsupportedConfig.
func EmptyConfig(t BlockType) BlockConfig {
	switch t {
	case BlockInstruction:
		return &InstructionConfig{}
	case BlockCommand:
		return &CommandConfig{}
	case BlockAPI:
		return &APIConfig{}
	case BlockSSH:
		return &SSHConfig{}
	case BlockTimer:
		return &TimerConfig{}
	case BlockCondition:
		return &ConditionConfig{}
	default:
		return nil
	}
}

// DisplayName returns the block name, or a label derived from its type.
func (b *Block) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	if b.Type == "" {
		return "Block"
	}
	return strings.ToUpper(string(b.Type[:1])) + string(b.Type[1:]) + " Block"
}

// Condition returns the condition config of a condition block, or nil.
func (b *Block) Condition() *ConditionConfig {
	c, _ := b.Config.(*ConditionConfig)
	return c
}

// Clone returns a deep copy of the block, nested branches included.
func (b Block) Clone() Block {
	if b.Config != nil {
		b.Config = b.Config.clone()
	}
	return b
}

// CloneBlocks deep-copies a list of blocks.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Clone()
	}
	return out
}

type blockWire struct {
	ID     string          `json:"id"`
	Type   BlockType       `json:"type"`
	Name   string          `json:"name,omitempty"`
	Order  int             `json:"order"`
	Config json.RawMessage `json:"config"`
}

// MarshalJSON encodes the block in the backend wire shape.
func (b Block) MarshalJSON() ([]byte, error) {
	config := json.RawMessage("{}")
	if b.Config != nil {
		if b.Type != "" && b.Config.BlockType() != b.Type {
			return nil, fmt.Errorf("block %s: config of type %s does not match block type %s",
				b.ID, b.Config.BlockType(), b.Type)
		}
		data, err := json.Marshal(b.Config)
		if err != nil {
			return nil, err
		}
		config = data
	}
	return json.Marshal(blockWire{
		ID:     b.ID,
		Type:   b.Type,
		Name:   b.Name,
		Order:  b.Order,
		Config: config,
	})
}

// UnmarshalJSON decodes a block, selecting the config type from the block type.
// A type without a config struct keeps its raw config in an UnsupportedConfig.
func (b *Block) UnmarshalJSON(data []byte) error {
	var wire blockWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	raw := bytes.TrimSpace(wire.Config)
	config := EmptyConfig(wire.Type)
	if config == nil {
		config = &UnsupportedConfig{Kind: wire.Type, Raw: slices.Clone(raw)}
	} else if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, config); err != nil {
			return fmt.Errorf("block %s: invalid %s config: %w", wire.ID, wire.Type, err)
		}
	}

	*b = Block{
		ID:     wire.ID,
		Type:   wire.Type,
		Name:   wire.Name,
		Order:  wire.Order,
		Config: config,
	}
	return nil
}

// FlexInt is an integer that also accepts a numeric string on decode.
// Form-authored configs store numbers as strings.
type FlexInt int

// UnmarshalJSON accepts 3, "3" and "".
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(data))
	}
	*f = FlexInt(n)
	return nil
}

// FlexNumber is a number of seconds that also accepts a numeric string on
// decode. Fractions are kept.
type FlexNumber float64

// UnmarshalJSON accepts 1.5, "1.5" and "".
func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", string(data))
	}
	*f = FlexNumber(n)
	return nil
}

// Seconds returns the value as a duration.
func (f FlexNumber) Seconds() time.Duration {
	return time.Duration(float64(f) * float64(time.Second))
}

// UnsupportedConfig holds the config of a block type this client does not
// know. The raw JSON is sent back unchanged on save.
type UnsupportedConfig struct {
	Kind BlockType
	Raw  json.RawMessage
}

// BlockType implements BlockConfig.
func (c *UnsupportedConfig) BlockType() BlockType { return c.Kind }

// MarshalJSON returns the config exactly as it was received.
func (c *UnsupportedConfig) MarshalJSON() ([]byte, error) {
	if len(c.Raw) == 0 || bytes.Equal(c.Raw, []byte("null")) {
		return []byte("{}"), nil
	}
	return c.Raw, nil
}

func (c *UnsupportedConfig) clone() BlockConfig {
	return &UnsupportedConfig{Kind: c.Kind, Raw: slices.Clone(c.Raw)}
}

// InstructionConfig is the config of an instruction block.
type InstructionConfig struct {
	Text string `json:"text,omitempty"`
}

// BlockType implements BlockConfig.
func (*InstructionConfig) BlockType() BlockType { return BlockInstruction }

func (c *InstructionConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// CommandConfig is the config of a command block.
type CommandConfig struct {
	Command string `json:"command,omitempty"`
}

// BlockType implements BlockConfig.
func (*CommandConfig) BlockType() BlockType { return BlockCommand }

func (c *CommandConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// APIConfig is the config of an api block.
type APIConfig struct {
	Method         string            `json:"method,omitempty"`
	URL            string            `json:"url,omitempty"`
	CredentialID   string            `json:"credential_id,omitempty"`
	AuthHeaderName string            `json:"auth_header_name,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`
}

// BlockType implements BlockConfig.
func (*APIConfig) BlockType() BlockType { return BlockAPI }

// HTTPMethod returns the configured method, GET when unset.
func (c *APIConfig) HTTPMethod() string {
	if c.Method == "" {
		return "GET"
	}
	return strings.ToUpper(c.Method)
}

func (c *APIConfig) clone() BlockConfig {
	cp := *c
	cp.Headers = maps.Clone(c.Headers)
	cp.Body = slices.Clone(c.Body)
	return &cp
}

// SSHConfig is the config of an ssh block.
type SSHConfig struct {
	Host         string `json:"host,omitempty"`
	Username     string `json:"username,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
	Command      string `json:"command,omitempty"`
}

// BlockType implements BlockConfig.
func (*SSHConfig) BlockType() BlockType { return BlockSSH }

func (c *SSHConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// TimerConfig is the config of a timer block.
type TimerConfig struct {
	Duration FlexNumber `json:"duration"`
}

// BlockType implements BlockConfig.
func (*TimerConfig) BlockType() BlockType { return BlockTimer }

func (c *TimerConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// ConditionType selects the check a condition block performs.
type ConditionType string

// Condition check types.
const (
	ConditionCommandExitCode ConditionType = "command_exit_code"
	ConditionAPIStatusCode   ConditionType = "api_status_code"
	ConditionFileExists      ConditionType = "file_exists"
	ConditionEnvVarEquals    ConditionType = "env_var_equals"
)

// ConditionTypes returns every known condition type.
func ConditionTypes() []ConditionType {
	return []ConditionType{ConditionCommandExitCode, ConditionAPIStatusCode, ConditionFileExists, ConditionEnvVarEquals}
}

// DefaultExpectedStatusCode is used when an api_status_code condition has no expected status.
const DefaultExpectedStatusCode = 200

// Branch names one of the two block lists of a condition.
type Branch string

// Condition branches, named after their config keys.
const (
	BranchThen Branch = "nested_blocks"
	BranchElse Branch = "else_blocks"
)

// ParseBranch converts user input ("then", "else" or the config key) into a Branch.
func ParseBranch(s string) (Branch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "then", "true", string(BranchThen):
		return BranchThen, nil
	case "else", "false", string(BranchElse):
		return BranchElse, nil
	default:
		return "", fmt.Errorf("unknown branch %q (valid: then, else)", s)
	}
}

// ConditionConfig is the config of a condition block.
type ConditionConfig struct {
	ConditionType      ConditionType `json:"condition_type,omitempty"`
	CheckCommand       string        `json:"check_command,omitempty"`
	ExpectedExitCode   FlexInt       `json:"expected_exit_code,omitempty"`
	CheckURL           string        `json:"check_url,omitempty"`
	ExpectedStatusCode FlexInt       `json:"expected_status_code,omitempty"`
	FilePath           string        `json:"file_path,omitempty"`
	EnvVarName         string        `json:"env_var_name,omitempty"`
	EnvVarValue        string        `json:"env_var_value,omitempty"`
	NestedBlocks       []Block       `json:"nested_blocks,omitempty"`
	ElseBlocks         []Block       `json:"else_blocks,omitempty"`
}

// BlockType implements BlockConfig.
func (*ConditionConfig) BlockType() BlockType { return BlockCondition }

// Check returns the condition type, command_exit_code when unset.
func (c *ConditionConfig) Check() ConditionType {
	if c.ConditionType == "" {
		return ConditionCommandExitCode
	}
	return c.ConditionType
}

// ExpectedStatus returns the expected HTTP status, 200 when unset.
func (c *ConditionConfig) ExpectedStatus() int {
	if c.ExpectedStatusCode == 0 {
		return DefaultExpectedStatusCode
	}
	return int(c.ExpectedStatusCode)
}

// Blocks returns the block list of a branch.
func (c *ConditionConfig) Blocks(branch Branch) []Block {
	if branch == BranchElse {
		return c.ElseBlocks
	}
	return c.NestedBlocks
}

// SetBlocks replaces the block list of a branch.
func (c *ConditionConfig) SetBlocks(branch Branch, blocks []Block) {
	if branch == BranchElse {
		c.ElseBlocks = blocks
		return
	}
	c.NestedBlocks = blocks
}

func (c *ConditionConfig) clone() BlockConfig {
	cp := *c
	cp.NestedBlocks = CloneBlocks(c.NestedBlocks)
	cp.ElseBlocks = CloneBlocks(c.ElseBlocks)
	return &cp
}
