package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, Limit: 10}, NormalizePage(0, 0, 10, 100))
	assert.Equal(t, PageRequest{Page: 3, Limit: 100}, NormalizePage(3, 500, 10, 100))
	assert.Equal(t, 40, NormalizePage(3, 20, 10, 100).Offset())
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 20, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TotalPages(tc.total, tc.limit), "total=%d limit=%d", tc.total, tc.limit)
	}
}

func TestNewPageNeverReturnsNilItems(t *testing.T) {
	p := NewPage[string](nil, PageRequest{Page: 1, Limit: 10}, 0)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.TotalPages)
}
