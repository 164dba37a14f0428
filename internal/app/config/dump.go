package config

import (
	"io"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.MQTT.Password != "" {
		c.MQTT.Password = redacted
	}
	return c
}

// WriteYAML renders the effective configuration with secrets masked.
// Durations are written in Go notation and keys keep struct order.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	node, err := toNode(reflect.ValueOf(c.Redacted()))
	if err != nil {
		return err
	}
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func toNode(v reflect.Value) (*yaml.Node, error) {
	if v.Type() == durationType {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: time.Duration(v.Int()).String()}, nil
	}
	if v.Kind() != reflect.Struct {
		n := &yaml.Node{}
		if err := n.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return n, nil
	}

	n := &yaml.Node{Kind: yaml.MappingNode}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		child, err := toNode(v.Field(i))
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, child)
	}
	return n, nil
}
