// Package config provides the configuration loader for keel.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file per build.
type Loader struct {
	log ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads the configuration from the given working directory and returns
// the fully configured build, with included builds loaded recursively.
// Included builds sharing a root directory resolve to one loaded build.
func (l *Loader) Load(cwd string) (*domain.Build, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve build directory")
	}
	return l.load(abs, make(map[string]*domain.Build))
}

func (l *Loader) load(rootDir string, loaded map[string]*domain.Build) (*domain.Build, error) {
	if b, ok := loaded[rootDir]; ok {
		return b, nil
	}

	path := filepath.Join(rootDir, domain.ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var file Keelfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	name := file.Name
	if name == "" {
		name = filepath.Base(rootDir)
	}

	build := domain.NewBuild(name, rootDir)
	loaded[rootDir] = build

	l.configureCache(build, file.BuildCache)
	build.SubscribeListeners(file.Listeners)

	if len(file.DynamicIncludes) > 0 {
		build.HasUnsupportedFeatures = true
		l.log.Warn("dynamicIncludes are not supported by the state cache; builds will reconfigure from scratch until removed")
	}

	if err := l.configureProjects(build, file.Projects); err != nil {
		return nil, err
	}
	if err := l.configureTasks(build, file.Tasks); err != nil {
		return nil, err
	}
	if err := l.configureIncludes(build, file.Includes, loaded); err != nil {
		return nil, err
	}

	build.FinalizeProjects()
	return build, nil
}

func (l *Loader) configureCache(build *domain.Build, cache *BuildCacheDTO) {
	if cache == nil {
		return
	}
	if cache.Local != nil {
		build.SetBuildCacheLocal(&domain.LocalCacheConfig{
			Directory: cache.Local.Directory,
			Push:      cache.Local.Push,
		})
	}
	if cache.Remote != nil {
		build.SetBuildCacheRemote(&domain.RemoteCacheConfig{
			URL:  cache.Remote.URL,
			Push: cache.Remote.Push,
		})
	}
}

// configureProjects materializes the declared projects plus every implied
// ancestor, parents before children.
func (l *Loader) configureProjects(build *domain.Build, projects map[string]ProjectDTO) error {
	build.CreateProject(domain.RootProjectPath, build.RootDir, filepath.Join(build.RootDir, "build"))

	paths := make([]string, 0, len(projects))
	for path := range projects {
		if !strings.HasPrefix(path, domain.ProjectPathSeparator) {
			return zerr.With(zerr.New("project path must start with ':'"), "project_path", path)
		}
		paths = append(paths, path)
	}
	// Sorting puts every ancestor before its descendants.
	sort.Strings(paths)

	for _, path := range paths {
		l.ensureAncestors(build, path)
		dto := projects[path]
		dir := dto.Dir
		if dir == "" {
			dir = defaultProjectDir(path)
		}
		buildDir := dto.BuildDir
		if buildDir == "" {
			buildDir = filepath.Join(dir, "build")
		}
		build.CreateProject(path, filepath.Join(build.RootDir, dir), filepath.Join(build.RootDir, buildDir))
	}
	return nil
}

func (l *Loader) ensureAncestors(build *domain.Build, path string) {
	parent, ok := domain.ParentProjectPath(path)
	if !ok {
		return
	}
	l.ensureAncestors(build, parent)
	if _, err := build.ProjectByPath(parent); err != nil {
		dir := defaultProjectDir(parent)
		build.CreateProject(parent, filepath.Join(build.RootDir, dir), filepath.Join(build.RootDir, dir, "build"))
	}
}

func defaultProjectDir(path string) string {
	trimmed := strings.TrimPrefix(path, domain.ProjectPathSeparator)
	return filepath.FromSlash(strings.ReplaceAll(trimmed, domain.ProjectPathSeparator, "/"))
}

func (l *Loader) configureTasks(build *domain.Build, tasks map[string]TaskDTO) error {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		if name == "all" {
			return zerr.With(zerr.New("task name 'all' is reserved"), "task_name", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make(map[string]*domain.WorkNode, len(names))
	ordered := make([]*domain.WorkNode, 0, len(names))
	for _, name := range names {
		dto := tasks[name]
		project := dto.Project
		if project == "" {
			project = domain.RootProjectPath
		}
		if _, err := build.ProjectByPath(project); err != nil {
			return err
		}
		node := &domain.WorkNode{
			TaskName:    domain.NewInternedString(name),
			ProjectPath: domain.NewInternedString(project),
			Command:     dto.Cmd,
			Inputs:      internStrings(dto.Input),
		}
		nodes[name] = node
		ordered = append(ordered, node)
	}

	for _, name := range names {
		for _, dep := range tasks[name].DependsOn {
			target, ok := nodes[dep]
			if !ok {
				return zerr.With(domain.ErrMissingDependency, "dependency", dep)
			}
			nodes[name].Dependencies = append(nodes[name].Dependencies, target)
		}
	}

	if err := domain.ValidateWorkGraph(ordered); err != nil {
		return err
	}
	build.Nodes = ordered
	return nil
}

func (l *Loader) configureIncludes(build *domain.Build, includes []IncludeDTO, loaded map[string]*domain.Build) error {
	var children []*domain.IncludedBuild
	for _, include := range includes {
		dir := include.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(build.RootDir, dir)
		}
		dir = filepath.Clean(dir)

		child, err := l.load(dir, loaded)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to load included build"), "build_dir", dir)
		}

		name := include.Name
		if name == "" {
			name = child.Name
		}
		children = append(children, &domain.IncludedBuild{
			Name:       name,
			RootDir:    dir,
			OriginPath: build.RootDir,
			Build:      child,
		})
	}
	build.SetIncludedBuilds(children)
	return nil
}

func internStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(s)
	}
	return res
}
