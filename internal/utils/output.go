package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (valid: text, json, yaml)", s)
}

// WriteStructured writes data to w as JSON or YAML. Text has no structured
// rendering and is an error here.
func WriteStructured(w io.Writer, f Format, data any) error {
	var (
		out []byte
		err error
	)
	switch f {
	case FormatJSON:
		out, err = MarshalJSON(data)
		out = append(out, '\n')
	case FormatYAML:
		out, err = MarshalYAML(data)
	default:
		return fmt.Errorf("format %q has no structured output", f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// MarshalJSON marshals data as two-space indented JSON. Backup files are
// written with it, so HTML characters in notes are kept as typed.
func MarshalJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func MarshalYAML(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}
