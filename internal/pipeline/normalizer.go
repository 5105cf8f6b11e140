// internal/pipeline/normalizer.go

// Package pipeline cleans business records before they are emitted.
package pipeline

import (
	"fmt"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// textFields are the free text fields that usually carry scraped markup
var textFields = []string{"name", "description", "review_site_description"}

// DefaultTransforms trims every field, and strips tags and collapses
// whitespace in the free text fields.
func DefaultTransforms() (TransformList, []FieldTransform) {
	global := TransformList{{Type: "trim"}}
	fields := make([]FieldTransform, 0, len(textFields))
	for _, name := range textFields {
		fields = append(fields, FieldTransform{
			Name:  name,
			Rules: TransformList{{Type: "remove_html"}, {Type: "normalize_spaces"}},
		})
	}
	return global, fields
}

// RecordNormalizer applies transform rules to the string fields of a record
type RecordNormalizer struct {
	Global TransformList
	Fields []FieldTransform
	logger utils.Logger
}

// NewRecordNormalizer validates the rules and builds a normalizer. With no
// rules at all the defaults are used.
func NewRecordNormalizer(global TransformList, fields []FieldTransform) (*RecordNormalizer, error) {
	if len(global) == 0 && len(fields) == 0 {
		global, fields = DefaultTransforms()
	}
	if err := global.Validate(); err != nil {
		return nil, fmt.Errorf("global transforms: %w", err)
	}
	known := make(map[string]bool, len(types.RecordFields))
	for _, f := range types.RecordFields {
		known[f] = true
	}
	for _, ft := range fields {
		if !known[ft.Name] {
			return nil, fmt.Errorf("transform for unknown field %q", ft.Name)
		}
		if err := ft.Rules.Validate(); err != nil {
			return nil, fmt.Errorf("field %s: %w", ft.Name, err)
		}
	}
	return &RecordNormalizer{
		Global: global,
		Fields: fields,
		logger: utils.NewComponentLogger("pipeline"),
	}, nil
}

// Normalize returns a cleaned copy of record. A field whose rules fail keeps
// its original value.
func (n *RecordNormalizer) Normalize(record types.BusinessRecord) types.BusinessRecord {
	row := record.ToMap()

	apply := func(key string, rules TransformList) {
		s, ok := row[key].(string)
		if !ok {
			return
		}
		out, err := rules.Apply(s)
		if err != nil {
			n.logger.WithField("field", key).Warnf("transform failed: %v", err)
			return
		}
		if out == "" && key != "name" {
			row[key] = nil
			return
		}
		row[key] = out
	}

	if len(n.Global) > 0 {
		for _, key := range types.RecordFields {
			apply(key, n.Global)
		}
	}
	for _, ft := range n.Fields {
		apply(ft.Name, ft.Rules)
	}

	cleaned := types.RecordFromMap(row)
	cleaned.RunID = record.RunID
	cleaned.DiscoveredAt = record.DiscoveredAt
	return cleaned
}
