// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vpoeng/vpo/internal/log"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()
	assert.NotNil(t, logger)
}

func TestLogger_Log(t *testing.T) {
	logger := NewLogger()

	event := Event{
		Type:      EventPolicyReload,
		Actor:     "admin",
		Action:    "reloaded policy",
		Resource:  "policy.yaml",
		Result:    "success",
		RequestID: "req-123",
		Details: map[string]string{
			"changes": "3",
		},
	}

	// Should not panic
	logger.Log(event)

	// Test with missing timestamp (should be set automatically)
	event2 := Event{
		Type:     EventJobEnqueued,
		Actor:    "system",
		Action:   "enqueued job",
		Resource: "job-1",
		Result:   "success",
	}

	logger.Log(event2)
}

func TestLogger_LogFromContext(t *testing.T) {
	logger := NewLogger()

	ctx := log.ContextWithJobID(context.Background(), "job-456")
	ctx = log.ContextWithCorrelationID(ctx, "corr-1")

	event := Event{
		Type:   EventJobClaimed,
		Actor:  "worker-1",
		Action: "claimed job",
		Result: "success",
	}

	// Should not panic and should pick up job id / correlation id from ctx.
	logger.LogFromContext(ctx, event)
}

func TestLogger_PolicyReload(t *testing.T) {
	logger := NewLogger()

	logger.PolicyReload("system", "/etc/vpo/policy.yaml", "success", map[string]string{
		"file": "/etc/vpo/policy.yaml",
	})

	logger.PolicyReload("admin", "/etc/vpo/policy.yaml", "failure", map[string]string{
		"error": "file not found",
	})
}

func TestLogger_JobLifecycle(t *testing.T) {
	logger := NewLogger()

	logger.JobEnqueued("job-1", "transcode", 5)
	logger.JobClaimed("job-1", "worker-a", 1)
	logger.JobTerminal("job-1", "worker-a", "COMPLETED", "")
	logger.JobTerminal("job-2", "worker-a", "FAILED", "tool_failed: ffmpeg exited 1")
	logger.JobTerminal("job-3", "worker-a", "CANCELLED", "")
	logger.JobReset("job-4", 2)
	logger.JobPurged("job-5")
}

func TestEvent_TimestampAutoSet(t *testing.T) {
	logger := NewLogger()

	event := Event{
		Type:     EventPolicyReload,
		Actor:    "test",
		Action:   "test action",
		Resource: "test",
		Result:   "success",
	}

	before := time.Now()
	logger.Log(event)
	after := time.Now()

	assert.True(t, before.Before(after) || before.Equal(after))
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", formatInt(0))
	assert.Equal(t, "42", formatInt(42))
	assert.Equal(t, "-10", formatInt(-10))
}

func BenchmarkLogger_Log(b *testing.B) {
	logger := NewLogger()
	event := Event{
		Type:     EventJobEnqueued,
		Actor:    "benchmark",
		Action:   "test",
		Resource: "job-x",
		Result:   "success",
		Details: map[string]string{
			"key1": "value1",
			"key2": "value2",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Log(event)
	}
}
