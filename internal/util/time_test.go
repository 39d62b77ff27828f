package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/internal/util"
)

func TestParseTimeInput(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "Now", input: "now", expected: now},
		{name: "Hours ago", input: "now-1h", expected: now.Add(-time.Hour)},
		{name: "Days ago", input: "now-7d", expected: now.AddDate(0, 0, -7)},
		{name: "RFC3339", input: "2024-05-01T08:00:00+02:00", expected: time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)},
		{name: "Epoch millis", input: "1714521600000", expected: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{name: "Bad relative", input: "now-xd", wantErr: true},
		{name: "Garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := util.ParseTimeInput(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}
