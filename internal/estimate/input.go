package estimate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadInput reads a YAML or JSON inventory file.
func LoadInput(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("read estimate input: %w", err)
	}
	return ParseInput(data)
}

// ParseInput decodes YAML; JSON documents parse as YAML too.
func ParseInput(data []byte) (Input, error) {
	var in Input
	if err := yaml.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("parse estimate input: %w", err)
	}
	return in, nil
}
