package core

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchCSV = `Age, ca19-9 ,TOTAL_BILIRUBIN,alp,Albumin,NLR,notes
55,500,1.2,120,3.5,4,first
,,,,,,
40,10,0.5,80,4.2,1.5,second
61,abc,1.0,100,3.0,2,bad value
`

func TestReadBatch(t *testing.T) {
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Row)
	assert.Equal(t, "500", rows[0].Fields["ca19-9"], "header names are trimmed")
	assert.NotContains(t, rows[0].Fields, " ca19-9 ")
	assert.Equal(t, "first", rows[0].Fields["notes"])
	assert.Equal(t, 2, rows[1].Row, "blank rows are not counted")
	assert.Equal(t, 3, rows[2].Row)
}

func TestReadBatchErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing columns", "CA19_9,Age\n1,2\n"},
		{"duplicate columns", "CA19_9,Total_Bilirubin,ALP,Albumin,NLR,Age,age\n1,2,3,4,5,6,7\n"},
		{"bad quoting", "CA19_9,Total_Bilirubin,ALP,Albumin,NLR,Age\n\"1,2,3,4,5,6\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBatch(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, schema.ErrInvalidInput)
		})
	}
}

func TestReadBatchMissingColumnsNamed(t *testing.T) {
	_, err := ReadBatch(strings.NewReader("CA19_9,Age,NLR\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Total_Bilirubin, ALP, Albumin")
}

func TestEstimateBatch(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 2")
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 16} {
		results := EstimateBatch(context.Background(), est, rows, workers)
		require.Len(t, results, 3)

		for i, res := range results {
			assert.Equal(t, i+1, res.Row, "results keep input order")
		}
		require.NotNil(t, results[0].Prediction)
		assert.InDelta(t, 0.258333, results[0].Prediction.Risk.Score, 1e-6)
		require.NotNil(t, results[1].Prediction)
		assert.Nil(t, results[2].Prediction)
		assert.ErrorIs(t, results[2].Err, schema.ErrInvalidInput)
		assert.Contains(t, results[2].Error, "CA19_9")
	}
}

func TestEstimateBatchRecordsSuccesses(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 3")
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)

	var mu sync.Mutex
	var recorded []int
	estimateBatch(context.Background(), est, rows, 4, func(row int, pred *schema.Prediction) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, row)
		assert.Equal(t, schema.Stage3, pred.Stage)
	})
	assert.ElementsMatch(t, []int{1, 2}, recorded)
}

func TestEstimateBatchCanceled(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 1")
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, res := range EstimateBatch(ctx, est, rows, 2) {
		assert.Nil(t, res.Prediction)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestEstimateBatchEmpty(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 1")
	assert.Empty(t, EstimateBatch(context.Background(), est, nil, 4))
}
