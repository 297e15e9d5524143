package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// YAMLEditor provides structured editing of a connection file using the
// yaml.v3 Node API, preserving comments and formatting.
type YAMLEditor struct {
	path string
}

// NewYAMLEditor creates a new editor for the given file path.
func NewYAMLEditor(path string) *YAMLEditor {
	return &YAMLEditor{path: path}
}

// Update loads the document, lets fn edit its root mapping and writes it
// back. A missing or empty file starts from an empty mapping.
func (e *YAMLEditor) Update(fn func(root *yaml.Node) error) error {
	doc, root, err := e.load()
	if err != nil {
		return err
	}
	if err := fn(root); err != nil {
		return err
	}
	return e.save(doc)
}

// SetString sets one top-level scalar key.
func (e *YAMLEditor) SetString(key, value string) error {
	return e.Update(func(root *yaml.Node) error {
		setScalar(root, key, value, "")
		return nil
	})
}

// DeleteKey removes a top-level key.
func (e *YAMLEditor) DeleteKey(key string) error {
	return e.Update(func(root *yaml.Node) error {
		idx := findMappingKeyIndex(root, key)
		if idx < 0 {
			return fmt.Errorf("key '%s' not found", key)
		}
		root.Content = append(root.Content[:idx], root.Content[idx+2:]...)
		return nil
	})
}

func (e *YAMLEditor) load() (*yaml.Node, *yaml.Node, error) {
	data, err := os.ReadFile(e.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	if doc.Kind == 0 {
		root := &yaml.Node{Kind: yaml.MappingNode}
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
		return &doc, root, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, fmt.Errorf("invalid YAML document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("root is not a mapping")
	}

	return &doc, root, nil
}

func (e *YAMLEditor) save(doc *yaml.Node) error {
	out, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("opening config for write: %w", err)
	}
	defer out.Close()

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// setScalar sets or appends a scalar key. An empty tag lets the encoder
// quote the value as a string.
func setScalar(mapping *yaml.Node, key, value, tag string) {
	if tag == "" {
		tag = "!!str"
	}
	if v := findMappingKey(mapping, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = tag
		v.Value = value
		v.Content = nil
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// setStringMap replaces a key's value with a mapping of m in sorted order.
func setStringMap(mapping *yaml.Node, key string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	valueNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		valueNode.Content = append(valueNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m[k]},
		)
	}

	if idx := findMappingKeyIndex(mapping, key); idx >= 0 {
		mapping.Content[idx+1] = valueNode
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		valueNode,
	)
}

// findMappingKey finds the value node for a key in a MappingNode.
func findMappingKey(mapping *yaml.Node, key string) *yaml.Node {
	if idx := findMappingKeyIndex(mapping, key); idx >= 0 {
		return mapping.Content[idx+1]
	}
	return nil
}

// findMappingKeyIndex returns the index of a key in a MappingNode's Content, or -1.
func findMappingKeyIndex(mapping *yaml.Node, key string) int {
	if mapping.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}
