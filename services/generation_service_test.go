package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONStripsFences(t *testing.T) {
	raw := "```json\n{\"title\": \"Go outside\"}\n```"
	assert.Equal(t, `{"title": "Go outside"}`, cleanJSON(raw))
}

func TestCleanJSONBareFences(t *testing.T) {
	raw := "```\n{\"title\": \"Go outside\"}\n```"
	assert.Equal(t, `{"title": "Go outside"}`, cleanJSON(raw))
}

func TestCleanJSONPassesPlainJSON(t *testing.T) {
	raw := `  {"title": "Go outside"}  `
	assert.Equal(t, `{"title": "Go outside"}`, cleanJSON(raw))
}
