package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
)

func TestDenseRetrieveSortedDescending(t *testing.T) {
	dense := NewDense(testSnapshot(t))

	results, err := dense.Retrieve([]float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "builder", results[0].ID)
	assert.Equal(t, "factory-method", results[1].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestDenseRetrieveTiesKeepInsertionOrder(t *testing.T) {
	entries := []catalog.Entry{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{1, 0}},
	}
	snap, err := catalog.NewSnapshot(entries, nil)
	require.NoError(t, err)

	results, err := NewDense(snap).Retrieve([]float32{1, 0})
	require.NoError(t, err)

	ids := []string{results[0].ID, results[1].ID, results[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestDenseRetrieveDeterministic(t *testing.T) {
	dense := NewDense(testSnapshot(t))

	first, err := dense.Retrieve([]float32{0.4, 0.4, 0.2})
	require.NoError(t, err)
	second, err := dense.Retrieve([]float32{0.4, 0.4, 0.2})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDenseRetrieveDimensionMismatch(t *testing.T) {
	dense := NewDense(testSnapshot(t))

	_, err := dense.Retrieve([]float32{1, 0})
	assert.ErrorIs(t, err, catalog.ErrDimensionMismatch)
}

func TestDenseRetrieveNegativeSimilarityClamped(t *testing.T) {
	entries := []catalog.Entry{
		{ID: "a", Embedding: []float32{1, 0}},
	}
	snap, err := catalog.NewSnapshot(entries, nil)
	require.NoError(t, err)

	results, err := NewDense(snap).Retrieve([]float32{-1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, results[0].Score)
}
