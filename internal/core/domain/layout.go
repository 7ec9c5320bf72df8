package domain

import "path/filepath"

const (
	// KeelDirName is the name of the internal workspace directory.
	KeelDirName = ".keel"

	// StateDirName is the name of the build-state cache directory.
	StateDirName = "state"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "keel.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStatePath returns the default root directory for cached build state.
func DefaultStatePath() string {
	return filepath.Join(KeelDirName, StateDirName)
}
