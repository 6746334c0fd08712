// Package indextask executes index-building and merging pipelines.
//
// A Plan is a set of OperationDescriptions with dependency edges.
// ComputeTopoStages groups them into stages of mutually independent
// operations; Engine.ScheduleTask runs each stage concurrently and waits for
// it before starting the next one.
//
// Operations hand artifacts to later stages through a ResourceManager: a
// named, typed store of directory-backed resources with explicit commit,
// load and release. Committed resources are published through a link file
// and survive process restarts.
package indextask
