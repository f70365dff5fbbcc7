// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for governance-relevant
// job and policy events. It follows the WHO/WHAT/WHEN pattern for compliance
// and forensics.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vpoeng/vpo/internal/log"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Policy events
	EventPolicyReload      EventType = "policy.reload"
	EventPolicyReloadError EventType = "policy.reload.error"

	// Job lifecycle events
	EventJobEnqueued  EventType = "job.enqueued"
	EventJobClaimed   EventType = "job.claimed"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
	EventJobCancelled EventType = "job.cancelled"
	EventJobReset     EventType = "job.reset_stale"
	EventJobPurged    EventType = "job.purged"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor"`             // WHO: worker id, CLI user, or "system"
	Action    string            `json:"action"`            // WHAT: human-readable action description
	Resource  string            `json:"resource"`          // Resource affected (job id, policy path)
	Result    string            `json:"result"`            // success, failure, denied
	RequestID string            `json:"request_id"`        // Correlation ID
	Details   map[string]string `json:"details,omitempty"` // Additional context
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	auditLogger := log.WithComponent("audit").With().
		Str("log_type", "audit").
		Logger()

	return &Logger{logger: auditLogger}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RequestID != "" {
		logEvent.Str("request_id", event.RequestID)
	}

	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// LogFromContext logs an audit event enriched with the job/request id carried
// on ctx.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = log.CorrelationIDFromContext(ctx)
	}
	if jobID := log.JobIDFromContext(ctx); jobID != "" && event.Resource == "" {
		event.Resource = jobID
	}
	l.Log(event)
}

// PolicyReload logs a policy hot-reload event.
func (l *Logger) PolicyReload(actor, policyPath, result string, details map[string]string) {
	l.Log(Event{
		Type:     EventPolicyReload,
		Actor:    actor,
		Action:   "reloaded policy document",
		Resource: policyPath,
		Result:   result,
		Details:  details,
	})
}

// JobEnqueued logs a job entering the QUEUED state.
func (l *Logger) JobEnqueued(jobID, kind string, priority int) {
	l.Log(Event{
		Type:     EventJobEnqueued,
		Actor:    "system",
		Action:   "enqueued job",
		Resource: jobID,
		Result:   "success",
		Details: map[string]string{
			"kind":     kind,
			"priority": formatInt(priority),
		},
	})
}

// JobClaimed logs a worker claiming a queued job.
func (l *Logger) JobClaimed(jobID, workerID string, attempt int) {
	l.Log(Event{
		Type:     EventJobClaimed,
		Actor:    workerID,
		Action:   "claimed job",
		Resource: jobID,
		Result:   "success",
		Details: map[string]string{
			"attempt_count": formatInt(attempt),
		},
	})
}

// JobTerminal logs a job reaching a terminal state.
func (l *Logger) JobTerminal(jobID, workerID, status, errMsg string) {
	evt := EventJobCompleted
	result := "success"
	switch status {
	case "FAILED":
		evt = EventJobFailed
		result = "failure"
	case "CANCELLED":
		evt = EventJobCancelled
		result = "denied"
	}
	details := map[string]string{}
	if errMsg != "" {
		details["error"] = errMsg
	}
	l.Log(Event{
		Type:     evt,
		Actor:    workerID,
		Action:   "job reached terminal state " + status,
		Resource: jobID,
		Result:   result,
		Details:  details,
	})
}

// JobReset logs the stale-lease recovery sweep resetting a job to QUEUED.
func (l *Logger) JobReset(jobID string, attemptCount int) {
	l.Log(Event{
		Type:     EventJobReset,
		Actor:    "system",
		Action:   "reset stale job to queued",
		Resource: jobID,
		Result:   "success",
		Details: map[string]string{
			"attempt_count": formatInt(attemptCount),
		},
	})
}

// JobPurged logs the cleanup sweep purging a terminal job record.
func (l *Logger) JobPurged(jobID string) {
	l.Log(Event{
		Type:     EventJobPurged,
		Actor:    "system",
		Action:   "purged terminal job record",
		Resource: jobID,
		Result:   "success",
	})
}

func formatInt(i int) string {
	if i == 0 {
		return "0"
	}

	neg := i < 0
	if neg {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if neg {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
