// Package recovery reconciles a directory with its last committed version
// after a crash.
//
// Segment directories newer than the committed version are "lost": they were
// being built when the writer died. In ModeSegment the lost segments holding
// finalized metadata are adopted into the recovered version, in increasing id
// order, until the first one that is incomplete; that one and every later one
// is deleted. ModeVersion never extends the version and deletes every lost
// segment.
//
// Normal and merged segment ids form separate ranges and are reconciled
// independently.
package recovery
