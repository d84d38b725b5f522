package actor

import "errors"

var (
	// ErrNoProc is returned when the addressed process does not exist or
	// has already terminated.
	ErrNoProc = errors.New("no such process")

	// ErrProcessStopped is returned for sends and requests to a process that
	// is shutting down.
	ErrProcessStopped = errors.New("process stopped")

	// ErrRuntimeStopped is returned by Spawn after the runtime was stopped.
	ErrRuntimeStopped = errors.New("runtime stopped")

	// ErrWatchInactive is returned by DemonitorProcess when the watch already
	// fired or was cancelled.
	ErrWatchInactive = errors.New("watch is not active")

	// ErrEnvFreed is the panic value for any use of an env after Free.
	ErrEnvFreed = errors.New("env used after free")

	// ErrForeignResource is returned when a resource does not belong to
	// the runtime it is used with.
	ErrForeignResource = errors.New("resource belongs to another runtime")
)
