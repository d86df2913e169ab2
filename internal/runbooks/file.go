// Package runbooks reads and writes runbook files and applies them to the backend.
package runbooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// Document is the on-disk form of a runbook. A document without an id
// creates a new runbook when applied.
type Document struct {
	ID            string      `json:"id,omitempty"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	EnvironmentID string      `json:"environment_id,omitempty"`
	Blocks        []api.Block `json:"blocks"`
}

// FromRunbook returns the document describing rb.
func FromRunbook(rb *api.Runbook) *Document {
	return &Document{
		ID:            rb.ID,
		Title:         rb.Title,
		Description:   rb.Description,
		Tags:          rb.Tags,
		EnvironmentID: rb.EnvironmentID,
		Blocks:        rb.Blocks,
	}
}

// WriteRequest returns the create or update body for the document.
func (d *Document) WriteRequest() api.RunbookWriteRequest {
	rb := api.Runbook{
		Title:         d.Title,
		Description:   d.Description,
		Tags:          d.Tags,
		EnvironmentID: d.EnvironmentID,
		Blocks:        d.Blocks,
	}
	return rb.WriteRequest()
}

// Parse decodes a YAML runbook document and validates it.
// Blocks share their JSON codec with the API, so the YAML is converted to
// JSON before decoding.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse runbook YAML: %w", err)
	}
	if raw == nil {
		return nil, errors.New("runbook file is empty")
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert runbook YAML: %w", err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()
	if err = dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid runbook: %w", err)
	}

	if err = Normalize(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses the runbook file at path.
func Load(path string) (*Document, error) {
	if !IsRunbookFile(path) {
		return nil, fmt.Errorf("%s: runbook files must end in %s", path, strings.Join(constants.RunbookFileExtensions, " or "))
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read runbook file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal encodes the document as YAML, keeping field order.
func Marshal(doc *Document) ([]byte, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode runbook: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	node, err := toNode(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode runbook: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err = enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode runbook: %w", err)
	}
	if err = enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the document at path.
func Write(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, data, constants.RunbookFilePermissions); err != nil {
		return fmt.Errorf("failed to write runbook file: %w", err)
	}
	return nil
}

// IsRunbookFile reports whether path has a runbook file extension.
func IsRunbookFile(path string) bool {
	return slices.Contains(constants.RunbookFileExtensions, strings.ToLower(filepath.Ext(path)))
}

// ListFiles returns the runbook files in dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runbook directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsRunbookFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// toNode rebuilds a JSON value as a YAML node, preserving key order.
func toNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if v == '{' {
			node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		for dec.More() {
			if node.Kind == yaml.MappingNode {
				key, keyErr := dec.Token()
				if keyErr != nil {
					return nil, keyErr
				}
				node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(key)})
			}
			child, childErr := toNode(dec)
			if childErr != nil {
				return nil, childErr
			}
			node.Content = append(node.Content, child)
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		return node, nil
	case string:
		node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
		if strings.Contains(v, "\n") {
			node.Style = yaml.LiteralStyle
		}
		return node, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON token %v", tok)
	}
}
