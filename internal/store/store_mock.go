package store

import (
	"time"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetHistoryStore implements the StoreManager interface.
func (m *MockStoreManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	hs, _ := ret.Get(0).(contract.HistoryStore)
	return hs
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	ret := m.Called(startTime, configParams)
	id, _ := ret.Get(0).(int64)
	return id, ret.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, totalPredictions int) error {
	return m.Called(runID, endTime, totalPredictions).Error(0)
}

// RecordPrediction implements the HistoryStore interface.
func (m *MockHistoryStore) RecordPrediction(runID int64, row int, predictedAt time.Time, pred schema.Prediction) error {
	return m.Called(runID, row, predictedAt, pred).Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.HistoryStatus)
	return status, ret.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.PredictionRunRecord, error) {
	ret := m.Called()
	runs, _ := ret.Get(0).([]schema.PredictionRunRecord)
	return runs, ret.Error(1)
}

// GetAllPredictions implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllPredictions() ([]schema.PredictionRecord, error) {
	ret := m.Called()
	preds, _ := ret.Get(0).([]schema.PredictionRecord)
	return preds, ret.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	return m.Called().Error(0)
}
