package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationSkipAndLimit(t *testing.T) {
	params := &PaginationParams{Page: 3, PageSize: 20}

	assert.Equal(t, 40, params.GetSkip())
	assert.Equal(t, 20, params.GetLimit())
}

func TestCreatePaginationMeta(t *testing.T) {
	params := &PaginationParams{Page: 2, PageSize: 10}
	meta := CreatePaginationMeta(params, 25)

	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)
	require.NotNil(t, meta.NextPage)
	assert.Equal(t, 3, *meta.NextPage)
	require.NotNil(t, meta.PreviousPage)
	assert.Equal(t, 1, *meta.PreviousPage)
}

func TestCreatePaginationMetaSinglePage(t *testing.T) {
	params := &PaginationParams{Page: 1, PageSize: 10}
	meta := CreatePaginationMeta(params, 4)

	assert.Equal(t, 1, meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.False(t, meta.HasPrevious)
	assert.Nil(t, meta.NextPage)
	assert.Nil(t, meta.PreviousPage)
}
