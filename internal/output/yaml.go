// internal/output/yaml.go
package output

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes a batch as a YAML sequence with a stable key order
type YAMLWriter struct {
	file    *os.File
	encoder *yaml.Encoder
	columns []string
}

// NewYAMLWriter creates a new YAML writer
func NewYAMLWriter(filename string) (*YAMLWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("YAML file path is required")
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create YAML file: %w", err)
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	return &YAMLWriter{
		file:    file,
		encoder: encoder,
		columns: BusinessColumns,
	}, nil
}

// Write encodes the batch. Absent fields are written as null so every
// record has the same keys.
func (w *YAMLWriter) Write(data []map[string]interface{}) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range data {
		seq.Content = append(seq.Content, w.recordNode(row))
	}
	if err := w.encoder.Encode(seq); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

func (w *YAMLWriter) recordNode(row map[string]interface{}) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range w.columns {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			valueNode(row[key]),
		)
	}
	return m
}

func valueNode(v interface{}) *yaml.Node {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	s := fmt.Sprintf("%v", v)
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	// multiline descriptions stay readable
	if strings.Contains(s, "\n") {
		node.Style = yaml.LiteralStyle
	}
	return node
}

// Close flushes the encoder and closes the file
func (w *YAMLWriter) Close() error {
	if w.encoder != nil {
		if err := w.encoder.Close(); err != nil {
			return err
		}
		w.encoder = nil
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
