package config

// Keelfile represents the structure of the keel.yaml configuration file.
type Keelfile struct {
	Version  string                `yaml:"version"`
	Name     string                `yaml:"name"`
	Projects map[string]ProjectDTO `yaml:"projects"`
	Tasks    map[string]TaskDTO    `yaml:"tasks"`
	Includes []IncludeDTO          `yaml:"includes"`

	BuildCache *BuildCacheDTO `yaml:"buildCache"`
	Listeners  []string       `yaml:"listeners"`

	// DynamicIncludes are glob-based build inclusions. They are honored for
	// execution but cannot be snapshotted by the state cache.
	DynamicIncludes []string `yaml:"dynamicIncludes"`
}

// ProjectDTO represents a project definition in the configuration.
type ProjectDTO struct {
	Dir      string `yaml:"dir"`
	BuildDir string `yaml:"buildDir"`
}

// TaskDTO represents a task definition in the configuration.
type TaskDTO struct {
	Project   string   `yaml:"project"`
	Cmd       []string `yaml:"cmd"`
	Input     []string `yaml:"input"`
	DependsOn []string `yaml:"dependsOn"`
}

// IncludeDTO represents an included build in the configuration.
type IncludeDTO struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

// BuildCacheDTO represents the build cache configuration.
type BuildCacheDTO struct {
	Local  *LocalCacheDTO  `yaml:"local"`
	Remote *RemoteCacheDTO `yaml:"remote"`
}

// LocalCacheDTO represents the local build cache configuration.
type LocalCacheDTO struct {
	Directory string `yaml:"directory"`
	Push      bool   `yaml:"push"`
}

// RemoteCacheDTO represents the remote build cache configuration.
type RemoteCacheDTO struct {
	URL  string `yaml:"url"`
	Push bool   `yaml:"push"`
}
