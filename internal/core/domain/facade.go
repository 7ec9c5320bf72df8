package domain

// Accessor methods forming the mutable build-model facade consumed by the
// state writer and reader.

func (b *Build) RootProjectName() string { return b.Name }

func (b *Build) RootDirectory() string { return b.RootDir }

func (b *Build) StartParameterTaskNames() []string { return b.TaskNames }

func (b *Build) SetStartParameterTaskNames(names []string) { b.TaskNames = names }

func (b *Build) IncludedBuilds() []*IncludedBuild { return b.Children }

func (b *Build) SetIncludedBuilds(builds []*IncludedBuild) { b.Children = builds }

func (b *Build) BuildCacheLocal() *LocalCacheConfig { return b.LocalCache }

func (b *Build) SetBuildCacheLocal(cfg *LocalCacheConfig) { b.LocalCache = cfg }

func (b *Build) BuildCacheRemote() *RemoteCacheConfig { return b.RemoteCache }

func (b *Build) SetBuildCacheRemote(cfg *RemoteCacheConfig) { b.RemoteCache = cfg }

func (b *Build) ListenerSubscriptions() []string { return b.Listeners }

func (b *Build) SubscribeListeners(ids []string) { b.Listeners = ids }

func (b *Build) OutputCleanupRegistrations() [][]string { return b.CleanupRegistrations }

func (b *Build) RegisterOutputCleanup(files []string) {
	b.CleanupRegistrations = append(b.CleanupRegistrations, files)
}

func (b *Build) UnsupportedFeatures() bool { return b.HasUnsupportedFeatures }

func (b *Build) MarkUnsupportedFeatures() { b.HasUnsupportedFeatures = true }

func (b *Build) PluginSnapshot() []byte { return b.PluginState }

func (b *Build) SetPluginSnapshot(snapshot []byte) { b.PluginState = snapshot }
