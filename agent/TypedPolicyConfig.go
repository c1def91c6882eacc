package agent

import (
	"encoding/json"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// TypedPolicyConfig stores a PolicyConfig together with its Type so
// that it can be deserialized into its concrete type without knowing
// that type beforehand.
type TypedPolicyConfig struct {
	Type         PolicyType `json:"type" yaml:"type"`
	PolicyConfig `json:"config" yaml:"config"`
}

// NewTypedPolicyConfig types the argument PolicyConfig
func NewTypedPolicyConfig(c PolicyConfig) TypedPolicyConfig {
	return TypedPolicyConfig{Type: c.Type(), PolicyConfig: c}
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (t *TypedPolicyConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   PolicyType      `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value, err := newConfig(raw.Type)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}
	if len(raw.Config) > 0 {
		if err := json.Unmarshal(raw.Config, value); err != nil {
			return fmt.Errorf("unmarshalJSON: %v config: %w", raw.Type, err)
		}
	}

	return t.set(raw.Type, value)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (t *TypedPolicyConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type   PolicyType `yaml:"type"`
		Config yaml.Node  `yaml:"config"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	value, err := newConfig(raw.Type)
	if err != nil {
		return fmt.Errorf("unmarshalYAML: %w", err)
	}
	if !raw.Config.IsZero() {
		if err := raw.Config.Decode(value); err != nil {
			return fmt.Errorf("unmarshalYAML: %v config: %w", raw.Type, err)
		}
	}

	return t.set(raw.Type, value)
}

func (t *TypedPolicyConfig) set(typeName PolicyType, value interface{}) error {
	config, ok := reflect.ValueOf(value).Elem().Interface().(PolicyConfig)
	if !ok {
		return fmt.Errorf("registered config for %v is not a PolicyConfig",
			typeName)
	}

	t.Type = typeName
	t.PolicyConfig = config
	return nil
}
