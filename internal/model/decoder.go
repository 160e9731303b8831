package model

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// Decoder maps class indices to the labels the classifier was trained on.
type Decoder struct {
	classes []string
}

var _ contract.LabelDecoder = &Decoder{} // Compile-time check

// NewDecoder builds a decoder over the given labels in index order.
func NewDecoder(classes []string) (*Decoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: label decoder has no classes", schema.ErrModelUnavailable)
	}
	return &Decoder{classes: slices.Clone(classes)}, nil
}

// ParseDecoder decodes a label encoder artifact of the form {"classes": [...]}.
func ParseDecoder(data []byte) (*Decoder, error) {
	var raw struct {
		Classes []string `json:"classes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed label decoder: %v", schema.ErrModelUnavailable, err)
	}
	return NewDecoder(raw.Classes)
}

// Decode implements contract.LabelDecoder.
func (d *Decoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(d.classes) {
		return "", fmt.Errorf("%w: class index %d out of range [0,%d)", schema.ErrModelUnavailable, index, len(d.classes))
	}
	return d.classes[index], nil
}

// Classes implements contract.LabelDecoder.
func (d *Decoder) Classes() []string {
	return slices.Clone(d.classes)
}
