package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastq/internal/model"
)

// JSONFormatter formats toasts as an indented JSON array.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes toasts as a JSON array. An empty queue is "[]".
func (f *JSONFormatter) Format(w io.Writer, toasts []model.Toast) error {
	if toasts == nil {
		toasts = []model.Toast{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toasts)
}

// YAMLFormatter formats toasts as a YAML sequence.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes toasts as a YAML sequence. An empty queue is "[]".
func (f *YAMLFormatter) Format(w io.Writer, toasts []model.Toast) error {
	if toasts == nil {
		toasts = []model.Toast{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(toasts); err != nil {
		return err
	}
	return encoder.Close()
}
