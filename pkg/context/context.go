// Package context carries build tracing values (build ID, entry point, stage, start time)
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Unexported struct pointers prevent key collisions.
var (
	buildIDKey    = &struct{}{}
	entryPointKey = &struct{}{}
	stageKey      = &struct{}{}
	waveKey       = &struct{}{}
	startTimeKey  = &struct{}{}
)

const (
	UnknownBuild = "unknown-build"
	UnknownStage = "unknown-stage"
)

// WithBuildID adds a build ID to the context, generating one when empty
func WithBuildID(parent context.Context, buildID string) context.Context {
	if buildID == "" {
		buildID = GenerateBuildID()
	}
	return context.WithValue(parent, buildIDKey, buildID)
}

// GetBuildID retrieves the build ID from context
func GetBuildID(ctx context.Context) string {
	if id, ok := ctx.Value(buildIDKey).(string); ok && id != "" {
		return id
	}
	return UnknownBuild
}

// WithEntryPoint records the entry point being built. The primary entry point has an empty ID.
func WithEntryPoint(parent context.Context, id string) context.Context {
	return context.WithValue(parent, entryPointKey, id)
}

// GetEntryPoint retrieves the entry point ID and whether one was set
func GetEntryPoint(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryPointKey).(string)
	return id, ok
}

// WithStage records the pipeline stage being run
func WithStage(parent context.Context, stage string) context.Context {
	return context.WithValue(parent, stageKey, stage)
}

// GetStage retrieves the pipeline stage from context
func GetStage(ctx context.Context) string {
	if s, ok := ctx.Value(stageKey).(string); ok && s != "" {
		return s
	}
	return UnknownStage
}

// WithWave records the depth of the wave being run
func WithWave(parent context.Context, depth int) context.Context {
	return context.WithValue(parent, waveKey, depth)
}

// GetWave retrieves the wave depth, or -1 outside a wave
func GetWave(ctx context.Context) int {
	if d, ok := ctx.Value(waveKey).(int); ok {
		return d
	}
	return -1
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time, or the zero time when unset
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the start time, or 0 when unset
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// GenerateBuildID creates a new unique build ID
func GenerateBuildID() string {
	return "build_" + uuid.New().String()
}

// EnrichContext adds a build ID when missing and stamps the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetBuildID(ctx) == UnknownBuild {
		ctx = WithBuildID(ctx, GenerateBuildID())
	}
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns the tracing values for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{
		"build_id": GetBuildID(ctx),
		"stage":    GetStage(ctx),
	}
	if id, ok := GetEntryPoint(ctx); ok {
		fields["entry"] = id
	}
	if wave := GetWave(ctx); wave >= 0 {
		fields["wave"] = wave
	}
	if d := GetDuration(ctx); d > 0 {
		fields["duration_ms"] = d.Milliseconds()
	}
	return fields
}
