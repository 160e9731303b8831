package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var keyFolder = cases.Fold()

// NormalizeFieldKey folds a lab field name so that "CA19-9", "ca19_9" and
// "CA 19 9" all compare equal. Full-width digits and letters are mapped to
// their ASCII forms first.
func NormalizeFieldKey(key string) string {
	folded := keyFolder.String(norm.NFKC.String(strings.TrimSpace(key)))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '\t':
			return -1
		}
		return r
	}, folded)
}

// fieldIndex maps normalized field names to their feature position.
var fieldIndex = func() map[string]int {
	idx := make(map[string]int, NumFeatures)
	for i, name := range FeatureNames {
		idx[NormalizeFieldKey(name)] = i
	}
	return idx
}()

// FeatureIndex returns the feature position for a field name in any casing or
// punctuation, and false when the name is not a lab field.
func FeatureIndex(name string) (int, bool) {
	i, ok := fieldIndex[NormalizeFieldKey(name)]
	return i, ok
}

// ParseLabPanel converts caller-supplied strings into a validated LabPanel.
// Keys are matched with NormalizeFieldKey. Every field is required; Age must
// be an integer, and two keys naming the same field are rejected.
func ParseLabPanel(fields map[string]string) (LabPanel, error) {
	var raw [NumFeatures]string
	var seen [NumFeatures]bool
	for key, value := range fields {
		i, ok := FeatureIndex(key)
		if !ok {
			continue
		}
		if seen[i] {
			return LabPanel{}, fmt.Errorf("%w: %s is given more than once", ErrInvalidInput, FeatureNames[i])
		}
		raw[i] = strings.TrimSpace(value)
		seen[i] = true
	}

	var vals [NumFeatures]float64
	for i, name := range FeatureNames {
		if !seen[i] || raw[i] == "" {
			return LabPanel{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
		}
		if name == FieldAge {
			continue
		}
		v, err := strconv.ParseFloat(raw[i], 64)
		if err != nil {
			return LabPanel{}, fmt.Errorf("%w: %s %q is not a number", ErrInvalidInput, name, raw[i])
		}
		vals[i] = v
	}

	ageIdx, _ := FeatureIndex(FieldAge)
	age, err := strconv.Atoi(raw[ageIdx])
	if err != nil {
		return LabPanel{}, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidInput, FieldAge, raw[ageIdx])
	}

	panel := LabPanel{
		CA199:          vals[0],
		TotalBilirubin: vals[1],
		ALP:            vals[2],
		Albumin:        vals[3],
		NLR:            vals[4],
		Age:            age,
	}
	if err := panel.Validate(); err != nil {
		return LabPanel{}, err
	}
	return panel, nil
}

// Validate rejects values that cannot be physical measurements. Values are
// never clamped here.
func (p LabPanel) Validate() error {
	for i, v := range p.Features() {
		name := FeatureNames[i]
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, name)
		case v < 0:
			return fmt.Errorf("%w: %s must be non-negative (got %g)", ErrInvalidInput, name, v)
		}
	}
	if p.Age > MaxAge {
		return fmt.Errorf("%w: %s must be at most %d (got %d)", ErrInvalidInput, FieldAge, MaxAge, p.Age)
	}
	return nil
}
