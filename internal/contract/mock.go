package contract

import (
	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/mock"
)

// MockClassifier is a mock implementation of Classifier for testing.
type MockClassifier struct {
	mock.Mock
}

var _ Classifier = &MockClassifier{} // Compile-time check

// Predict implements the Classifier interface.
func (m *MockClassifier) Predict(features [schema.NumFeatures]float64) (int, error) {
	ret := m.Called(features)
	return ret.Int(0), ret.Error(1)
}

// MockLabelDecoder is a mock implementation of LabelDecoder for testing.
type MockLabelDecoder struct {
	mock.Mock
}

var _ LabelDecoder = &MockLabelDecoder{} // Compile-time check

// Decode implements the LabelDecoder interface.
func (m *MockLabelDecoder) Decode(index int) (string, error) {
	ret := m.Called(index)
	return ret.String(0), ret.Error(1)
}

// Classes implements the LabelDecoder interface.
func (m *MockLabelDecoder) Classes() []string {
	ret := m.Called()
	classes, _ := ret.Get(0).([]string)
	return classes
}
