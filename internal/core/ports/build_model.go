package ports

import "go.trai.ch/keel/internal/core/domain"

// BuildModel is the mutable facade over one configured build that the state
// writer reads from and the state reader populates. *domain.Build satisfies it.
//
//go:generate go run go.uber.org/mock/mockgen -source=build_model.go -destination=mocks/mock_build_model.go -package=mocks
type BuildModel interface {
	RootProjectName() string
	RootDirectory() string

	StartParameterTaskNames() []string
	SetStartParameterTaskNames(names []string)

	IncludedBuilds() []*domain.IncludedBuild
	SetIncludedBuilds(builds []*domain.IncludedBuild)

	BuildCacheLocal() *domain.LocalCacheConfig
	SetBuildCacheLocal(cfg *domain.LocalCacheConfig)
	BuildCacheRemote() *domain.RemoteCacheConfig
	SetBuildCacheRemote(cfg *domain.RemoteCacheConfig)

	ListenerSubscriptions() []string
	SubscribeListeners(ids []string)

	OutputCleanupRegistrations() [][]string
	RegisterOutputCleanup(files []string)

	UnsupportedFeatures() bool
	MarkUnsupportedFeatures()

	PluginSnapshot() []byte
	SetPluginSnapshot(snapshot []byte)
}

// PluginAdapter snapshots and restores opaque plugin state alongside the build
// state. An adapter opts in to being snapshotted via ShouldSave.
type PluginAdapter interface {
	ShouldSave() bool
	Snapshot() ([]byte, error)
	Restore(state []byte) error
}
