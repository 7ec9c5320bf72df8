package domain

import "go.trai.ch/zerr"

var (
	// ErrCorruptState is returned when a state file fails its integrity check on read.
	// The caller must fall back to a full configuration pass.
	ErrCorruptState = zerr.New("corrupt state file")

	// ErrEncoding is returned when a value has no registered codec or the stream
	// carries an unknown type discriminator.
	ErrEncoding = zerr.New("encoding error")

	// ErrNoStateEntry is returned when no cached state exists for a build.
	ErrNoStateEntry = zerr.New("no state entry")

	// ErrMissingDependency is returned when a work node references a dependency
	// outside the scheduled node sequence.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the work graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrProjectNotFound is returned when a work node references a project path
	// that has not been materialized.
	ErrProjectNotFound = zerr.New("project not found")

	// ErrTaskAlreadyExists is returned when a configuration defines the same task twice.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrTaskNotFound is returned when a requested target does not name a configured task.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when a run is requested without targets.
	ErrNoTargetsSpecified = zerr.New("no targets specified")
)
