package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Same(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Track
		expected bool
	}{
		{
			name:     "same id different metadata",
			a:        Track{ID: "t1", Title: "A"},
			b:        Track{ID: "t1", Title: "B"},
			expected: true,
		},
		{
			name:     "different id",
			a:        Track{ID: "t1"},
			b:        Track{ID: "t2"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Same(tt.b))
		})
	}
}

func TestTrack_DurationSeconds(t *testing.T) {
	assert.Equal(t, 192.5, Track{Duration: 192500 * time.Millisecond}.DurationSeconds())
	assert.Zero(t, Track{}.DurationSeconds())
}

func TestQueueType_Valid(t *testing.T) {
	assert.True(t, QueueActive.Valid())
	assert.True(t, QueuePriority.Valid())
	assert.False(t, QueueType("").Valid())
	assert.False(t, QueueType("history").Valid())
}
