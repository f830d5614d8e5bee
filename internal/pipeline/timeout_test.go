package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featmark/internal/config"
	"featmark/internal/logging"
	"featmark/internal/registry"
)

func TestGetCheckTimeout(t *testing.T) {
	tests := []struct {
		name     string
		config   *config.Config
		expected time.Duration
	}{
		{
			name:     "nil config uses default",
			config:   nil,
			expected: DefaultCheckTimeout,
		},
		{
			name: "configured timeout wins",
			config: &config.Config{
				Timeouts: config.TimeoutConfig{Check: 100 * time.Millisecond},
			},
			expected: 100 * time.Millisecond,
		},
		{
			name: "zero falls back to default",
			config: &config.Config{
				Timeouts: config.TimeoutConfig{Check: 0},
			},
			expected: DefaultCheckTimeout,
		},
		{
			name: "negative falls back to default",
			config: &config.Config{
				Timeouts: config.TimeoutConfig{Check: -5 * time.Second},
			},
			expected: DefaultCheckTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CheckPipeline{config: tt.config}
			assert.Equal(t, tt.expected, p.getCheckTimeout())
		})
	}
}

func TestStopWithTimeout(t *testing.T) {
	path := writeGuide(t, "test_pipeline_stop_guide.md", pipelineGuide)

	reg := registry.NewDocumentRegistry()
	p := NewCheckPipeline(2, reg, logging.NewTestLogger())
	results := collectResults(p)

	p.Start(context.Background())
	p.Check(path)
	waitForResult(t, results)

	err := p.StopWithTimeout(2 * time.Second)
	require.NoError(t, err)
}

func TestStopWithTimeout_NotStarted(t *testing.T) {
	reg := registry.NewDocumentRegistry()
	p := NewCheckPipeline(1, reg, logging.NewTestLogger())

	err := p.StopWithTimeout(100 * time.Millisecond)
	assert.NoError(t, err)
}
