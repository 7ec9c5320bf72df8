package domain

import "go.trai.ch/zerr"

// LocalCacheConfig describes the local build cache of a build tree.
type LocalCacheConfig struct {
	Directory string
	Push      bool
}

// RemoteCacheConfig describes the remote build cache of a build tree.
type RemoteCacheConfig struct {
	URL  string
	Push bool
}

// IncludedBuild is a handle to a build composed into a parent build.
// Two handles may share the same root directory; in that case they resolve to
// one Build and the state of that directory is serialized exactly once.
type IncludedBuild struct {
	Name       string
	RootDir    string
	OriginPath string // path of the build that declared the inclusion
	Build      *Build
}

// Build represents one configured build: the root build or an included build.
// Its identity is the root directory.
type Build struct {
	Name      string
	RootDir   string
	TaskNames []string

	LocalCache  *LocalCacheConfig
	RemoteCache *RemoteCacheConfig

	// Listeners holds the ids of event-listener subscriptions to re-establish
	// when the build is restored from state.
	Listeners []string

	// CleanupRegistrations holds file collections registered for output cleanup.
	CleanupRegistrations [][]string

	// PluginState is an opaque snapshot produced by the plugin adapter, if any.
	PluginState []byte

	// HasUnsupportedFeatures records that the configuration used features the
	// state cache cannot snapshot; the restore side replays a warning for them.
	HasUnsupportedFeatures bool

	Children []*IncludedBuild

	// Nodes is the scheduled work graph of this build.
	Nodes []*WorkNode

	projects  map[string]*Project
	projSeq   []*Project
	finalized bool
}

// NewBuild creates an empty build rooted at the given directory.
func NewBuild(name, rootDir string) *Build {
	return &Build{
		Name:     name,
		RootDir:  rootDir,
		projects: make(map[string]*Project),
	}
}

// CreateProject materializes a project in this build. The parent link is
// resolved from the path; creation order is preserved for later registration.
// Creating an already existing path returns the existing project.
func (b *Build) CreateProject(path, dir, buildDir string) *Project {
	if p, ok := b.projects[path]; ok {
		return p
	}
	p := &Project{Path: path, Dir: dir, BuildDir: buildDir}
	if parentPath, ok := ParentProjectPath(path); ok {
		p.Parent = b.projects[parentPath]
	}
	b.projects[path] = p
	b.projSeq = append(b.projSeq, p)
	return p
}

// ProjectByPath returns the project registered under path, or an error.
func (b *Build) ProjectByPath(path string) (*Project, error) {
	p, ok := b.projects[path]
	if !ok {
		return nil, zerr.With(ErrProjectNotFound, "project_path", path)
	}
	return p, nil
}

// Projects returns the registered projects in creation order.
func (b *Build) Projects() []*Project {
	return b.projSeq
}

// FinalizeProjects seals the project registry. Work nodes may only be
// scheduled against a finalized build.
func (b *Build) FinalizeProjects() {
	b.finalized = true
}

// ProjectsFinalized reports whether the project registry has been sealed.
func (b *Build) ProjectsFinalized() bool {
	return b.finalized
}
