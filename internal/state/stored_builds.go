package state

// StoredBuilds is the per-write-session ledger of build root directories whose
// full state has already been serialized. It guarantees that a directory
// shared by multiple included builds is written exactly once. The ledger is
// only touched by the single-threaded write pass of one build tree.
type StoredBuilds struct {
	dirs map[string]struct{}
}

// NewStoredBuilds creates an empty ledger.
func NewStoredBuilds() *StoredBuilds {
	return &StoredBuilds{dirs: make(map[string]struct{})}
}

// FirstSeen records rootDir and reports whether this was its first occurrence
// in the current write session.
func (s *StoredBuilds) FirstSeen(rootDir string) bool {
	if _, ok := s.dirs[rootDir]; ok {
		return false
	}
	s.dirs[rootDir] = struct{}{}
	return true
}
