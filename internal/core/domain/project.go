package domain

import "strings"

// ProjectPathSeparator separates segments of a project path, e.g. ":libs:core".
const ProjectPathSeparator = ":"

// RootProjectPath is the path of the root project of every build.
const RootProjectPath = ":"

// Project represents one project of a build. Its identity is the project path,
// unique within the owning build. Parent links form a tree rooted at ":".
type Project struct {
	Path     string
	Dir      string
	BuildDir string
	Parent   *Project
}

// ParentProjectPath returns the path of the parent of the given project path.
// The root path has no parent.
func ParentProjectPath(path string) (string, bool) {
	if path == RootProjectPath || path == "" {
		return "", false
	}
	idx := strings.LastIndex(path, ProjectPathSeparator)
	if idx <= 0 {
		return RootProjectPath, true
	}
	return path[:idx], true
}
