package ports

import "io"

// StateFile is one addressable binary state file. The store decides physical
// placement and naming; readers and writers only consume the streams.
//
//go:generate go run go.uber.org/mock/mockgen -source=state_store.go -destination=mocks/mock_state_store.go -package=mocks
type StateFile interface {
	// OutputStream opens the file for writing, truncating any previous content.
	OutputStream() (io.WriteCloser, error)

	// InputStream opens the file for reading.
	InputStream() (io.ReadCloser, error)

	// StateFileForIncludedBuild returns the state file holding the full state
	// of the included build rooted at the given directory.
	StateFileForIncludedBuild(rootDir string) StateFile
}

// StateStore is an addressable sequence of binary state files, one per build,
// indexed by build root directory.
type StateStore interface {
	// EntryFor returns the state file for the build rooted at rootDir.
	EntryFor(rootDir string) StateFile

	// HasEntry reports whether a state file exists for the build rooted at rootDir.
	HasEntry(rootDir string) bool

	// Discard invalidates the whole store. Subsequent runs reconfigure from scratch.
	Discard() error
}
