package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetValues writes dotted keys into the config file, keeping existing
// comments and ordering. The file is created if it does not exist.
func SetValues(values map[string]string) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	root, err := readDocument(path)
	if err != nil {
		return err
	}

	for key, value := range values {
		if err := setYAMLValue(root, strings.Split(key, "."), value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return err
	}
	encoder.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// GetValue returns the scalar at a dotted key in the config file.
func GetValue(key string) (string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist")
	}
	root, err := readDocument(path)
	if err != nil {
		return "", err
	}
	return getYAMLValue(root, strings.Split(key, "."))
}

// SaveTheme stores theme colors under the theme key.
func SaveTheme(theme ThemeConfig) error {
	return SetValues(map[string]string{
		"theme.primary":   theme.Primary,
		"theme.secondary": theme.Secondary,
		"theme.success":   theme.Success,
		"theme.error":     theme.Error,
		"theme.warning":   theme.Warning,
		"theme.muted":     theme.Muted,
		"theme.text":      theme.Text,
		"theme.spinner":   theme.Spinner,
	})
}

func readDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(bytes.TrimSpace(data)) == 0) {
		return &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &root, nil
}

// setYAMLValue sets a value in the yaml.Node tree, creating intermediate
// mappings as needed
func setYAMLValue(root *yaml.Node, path []string, value string) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	if current.Kind != yaml.MappingNode {
		return fmt.Errorf("root is not a mapping")
	}

	for i, part := range path {
		isLast := i == len(path)-1

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value != part {
				continue
			}
			if isLast {
				valueNode := current.Content[j+1]
				valueNode.Value = value
				valueNode.Tag = ""
				valueNode.Kind = yaml.ScalarNode
				valueNode.Content = nil
			} else {
				current = current.Content[j+1]
				if current.Kind != yaml.MappingNode {
					// Convert to mapping if needed
					current.Kind = yaml.MappingNode
					current.Content = nil
					current.Value = ""
					current.Tag = ""
				}
			}
			found = true
			break
		}

		if found {
			continue
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: part}
		if isLast {
			current.Content = append(current.Content, keyNode, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
		} else {
			newMapping := &yaml.Node{Kind: yaml.MappingNode}
			current.Content = append(current.Content, keyNode, newMapping)
			current = newMapping
		}
	}

	return nil
}

// getYAMLValue navigates the yaml.Node tree and returns the value at path
func getYAMLValue(root *yaml.Node, path []string) (string, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return "", fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	for _, part := range path {
		if current.Kind != yaml.MappingNode {
			return "", fmt.Errorf("path not found: expected mapping")
		}

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value == part {
				current = current.Content[j+1]
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("key not found: %s", part)
		}
	}

	if current.Kind != yaml.ScalarNode {
		out, err := yaml.Marshal(current)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(out), "\n"), nil
	}
	return current.Value, nil
}
