// Package engine provides the build orchestration for zuz.
// The implementation is split across multiple files:
// - packager.go: end-to-end build of one package
// - scheduler.go: depth-ordered waves with bounded parallelism
// - pipeline.go: compile, inline and bundle steps of one entry point
// - factory.go: dependency injection factory
// - safegroup.go: panic-safe concurrency utilities
package engine
