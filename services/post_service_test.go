package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasMore(t *testing.T) {
	// 12 posts total, page size 5
	assert.True(t, HasMore(0, 5, 12))
	assert.True(t, HasMore(5, 5, 12))
	assert.False(t, HasMore(10, 2, 12))
}

func TestHasMoreEmptyFeed(t *testing.T) {
	assert.False(t, HasMore(0, 0, 0))
}

func TestHasMoreSkipPastEnd(t *testing.T) {
	assert.False(t, HasMore(20, 0, 12))
}
