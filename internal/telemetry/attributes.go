// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the vpo
// job worker and phase executor.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the worker/phase layer.
const (
	// Job attributes
	JobIDKey       = "job.id"
	JobTypeKey     = "job.type"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"
	JobAttemptKey  = "job.attempt_count"

	// Phase attributes
	PhaseNameKey    = "phase.name"
	PhaseIndexKey   = "phase.index"
	PhaseActionsKey = "phase.action_count"

	// Policy attributes
	PolicyRefKey     = "policy.ref"
	PolicySchemaKey  = "policy.schema_version"
	PolicyOnErrorKey = "policy.on_error"

	// Transcode attributes
	TranscodeInputCodecKey  = "transcode.input_codec"
	TranscodeOutputCodecKey = "transcode.output_codec"
	TranscodeBitrateKey     = "transcode.bitrate"
	TranscodeGPUEnabledKey  = "transcode.gpu_enabled"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// JobAttributes creates job-related span attributes.
func JobAttributes(jobID, jobType, status string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
		attribute.Int(JobAttemptKey, attempt),
	}
}

// PhaseAttributes creates phase-execution span attributes.
func PhaseAttributes(name string, index, actionCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PhaseNameKey, name),
		attribute.Int(PhaseIndexKey, index),
		attribute.Int(PhaseActionsKey, actionCount),
	}
}

// PolicyAttributes creates policy-evaluation span attributes.
func PolicyAttributes(ref string, schemaVersion int, onError string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PolicyRefKey, ref),
		attribute.Int(PolicySchemaKey, schemaVersion),
		attribute.String(PolicyOnErrorKey, onError),
	}
}

// TranscodeAttributes creates transcoding-related span attributes.
func TranscodeAttributes(inputCodec, outputCodec string, bitrate int, gpuEnabled bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TranscodeInputCodecKey, inputCodec),
		attribute.String(TranscodeOutputCodecKey, outputCodec),
		attribute.Int(TranscodeBitrateKey, bitrate),
		attribute.Bool(TranscodeGPUEnabledKey, gpuEnabled),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
