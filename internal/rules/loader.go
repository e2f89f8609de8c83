// Package rules loads rule sets from YAML files and reloads them when the file changes.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/studyflow/internal/model"
)

// Top-level keys of a rules file.
const (
	keyVersion       = "version"
	keyDirectLookups = "direct_lookups"
	keyRules         = "classification_rules"
	keyValues        = "category_values"
)

// LoadFile reads and parses the rules file at path.
func LoadFile(path string) (*model.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a rules document. Mapping order in the document is kept: it decides which
// category's rules are tried first and how partial-match ties break. A document without a
// version gets one derived from its content.
func Parse(data []byte) (*model.RuleSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRuleSet, err)
	}

	var (
		version string
		lookups []model.DirectLookup
		groups  []model.CategoryRules
		values  []model.CategoryValue
	)

	if len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: line %d: document must be a mapping", model.ErrInvalidRuleSet, root.Line)
		}

		err := eachPair(root, func(key string, value *yaml.Node) error {
			switch key {
			case keyVersion:
				return value.Decode(&version)
			case keyDirectLookups:
				return eachPair(value, func(text string, v *yaml.Node) error {
					var category string
					if err := v.Decode(&category); err != nil {
						return err
					}
					lookups = append(lookups, model.DirectLookup{Text: text, Category: category})
					return nil
				})
			case keyRules:
				return eachPair(value, func(category string, v *yaml.Node) error {
					var rs []model.Rule
					if err := v.Decode(&rs); err != nil {
						return err
					}
					groups = append(groups, model.CategoryRules{Category: category, Rules: rs})
					return nil
				})
			case keyValues:
				return eachPair(value, func(category string, v *yaml.Node) error {
					var f float64
					if err := v.Decode(&f); err != nil {
						return err
					}
					values = append(values, model.CategoryValue{Category: category, Value: f})
					return nil
				})
			default:
				return fmt.Errorf("unknown key %q", key)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidRuleSet, err)
		}
	}

	if strings.TrimSpace(version) == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:6])
	}

	return model.NewRuleSet(version, lookups, groups, values)
}

// eachPair walks a mapping node in document order.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		if err := fn(keyNode.Value, valueNode); err != nil {
			return fmt.Errorf("line %d: %s: %w", keyNode.Line, keyNode.Value, err)
		}
	}
	return nil
}
