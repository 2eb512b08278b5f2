package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestClampPage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		pageCount *int
		want      int
	}{
		{"within range", 80, intPtr(300), 80},
		{"above page count", 350, intPtr(300), 300},
		{"negative", -5, intPtr(300), 0},
		{"unknown page count", 999, nil, 999},
		{"zero page count treated as unknown", 12, intPtr(0), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampPage(tt.page, tt.pageCount))
		})
	}
}

func TestIsFinished(t *testing.T) {
	assert.True(t, IsFinished(300, intPtr(300)))
	assert.False(t, IsFinished(299, intPtr(300)))
	assert.False(t, IsFinished(500, nil))
	assert.False(t, IsFinished(0, intPtr(0)))
}

func TestUser_HasSaved(t *testing.T) {
	u := &User{SavedBooks: []string{"a", "b"}}

	assert.True(t, u.HasSaved("b"))
	assert.False(t, u.HasSaved("c"))
}
