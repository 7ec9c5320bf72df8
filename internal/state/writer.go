// Package state implements snapshot and restore of a configured build tree:
// the writer walks a build and its included builds depth-first into binary
// state files, and the reader replays the same order to reconstruct an
// equivalent in-memory build model ready for execution.
package state

import (
	"go.trai.ch/keel/internal/codec"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/zerr"
)

// stateFileSentinel terminates every state file. It is the single end-to-end
// integrity check of the stream; a mismatch on read is fatal for the entry.
const stateFileSentinel uint32 = 0x1ecac8e

// The writer and reader touch build state only through the model facade;
// the concrete build is needed for project lookup and scheduler calls.
var _ ports.BuildModel = (*domain.Build)(nil)

// Writer serializes one build tree to the state store.
type Writer struct {
	scheduler ports.WorkScheduler
	plugin    ports.PluginAdapter
	table     *codec.Table
}

// NewWriter creates a writer. plugin may be nil when no plugin adapter is
// installed; its state is then skipped with a null marker.
func NewWriter(scheduler ports.WorkScheduler, plugin ports.PluginAdapter) *Writer {
	return &Writer{
		scheduler: scheduler,
		plugin:    plugin,
		table:     NewCodecTable(),
	}
}

// WriteRootBuild writes the full state of the root build, recursing into a
// separate state file for every included build seen for the first time.
func (w *Writer) WriteRootBuild(build *domain.Build, file ports.StateFile) error {
	stored := NewStoredBuilds()
	return w.writeStateFile(build, file, func(enc *codec.Encoder) error {
		return enc.WithFrame("root build", func() error {
			if err := enc.WriteString(build.RootProjectName()); err != nil {
				return err
			}
			if err := w.writeBuildTreeState(enc, build); err != nil {
				return err
			}
			if err := w.writeBuildState(enc, build, file, stored); err != nil {
				return err
			}
			return w.writeWorkGraphState(enc, build)
		})
	})
}

// writeIncludedBuild writes the entire state of an included build to its own
// state file. The build-tree state is not repeated; it belongs to the tree,
// not to the build.
func (w *Writer) writeIncludedBuild(
	build *domain.Build,
	file ports.StateFile,
	stored *StoredBuilds,
) error {
	return w.writeStateFile(build, file, func(enc *codec.Encoder) error {
		return enc.WithFrame("build "+build.Name, func() error {
			if err := enc.WriteString(build.RootProjectName()); err != nil {
				return err
			}
			if err := w.writeBuildState(enc, build, file, stored); err != nil {
				return err
			}
			return w.writeWorkGraphState(enc, build)
		})
	})
}

// writeStateFile runs body against a fresh encoder for file and terminates
// the stream with the sentinel.
func (w *Writer) writeStateFile(
	build *domain.Build,
	file ports.StateFile,
	body func(enc *codec.Encoder) error,
) (err error) {
	out, err := file.OutputStream()
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open state file for writing"), "build_dir", build.RootDir)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = zerr.Wrap(closeErr, "failed to close state file")
		}
	}()

	enc := codec.NewEncoder(out, w.table)
	if err := body(enc); err != nil {
		return err
	}
	if err := enc.WriteFixed32(stateFileSentinel); err != nil {
		return err
	}
	return enc.Flush()
}

// writeBuildTreeState writes the state shared by the whole build tree:
// build-cache configuration, listener subscriptions, and the plugin snapshot.
// Written once per tree, never per included build.
func (w *Writer) writeBuildTreeState(enc *codec.Encoder, build ports.BuildModel) error {
	return enc.WithIsolate(func() error {
		return enc.WithFrame("build tree state", func() error {
			if err := enc.WriteValue(nullable(build.BuildCacheLocal())); err != nil {
				return err
			}
			if err := enc.WriteValue(nullable(build.BuildCacheRemote())); err != nil {
				return err
			}
			if err := enc.WriteStrings(build.ListenerSubscriptions()); err != nil {
				return err
			}
			return w.writePluginState(enc)
		})
	})
}

func (w *Writer) writePluginState(enc *codec.Encoder) error {
	if w.plugin == nil || !w.plugin.ShouldSave() {
		return enc.WriteBool(false)
	}
	snapshot, err := w.plugin.Snapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to snapshot plugin state")
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	return enc.WriteBytes(snapshot)
}

// writeBuildState writes the per-build state: start-parameter task names, the
// unsupported-feature flag, included builds, and output-cleanup registrations.
func (w *Writer) writeBuildState(
	enc *codec.Encoder,
	build ports.BuildModel,
	file ports.StateFile,
	stored *StoredBuilds,
) error {
	if err := enc.WriteStrings(build.StartParameterTaskNames()); err != nil {
		return err
	}
	if err := enc.WriteBool(build.UnsupportedFeatures()); err != nil {
		return err
	}
	if err := w.writeIncludedBuilds(enc, build, file, stored); err != nil {
		return err
	}

	regs := build.OutputCleanupRegistrations()
	return enc.WriteCollection(len(regs), func(i int) error {
		return enc.WriteStrings(regs[i])
	})
}

// writeIncludedBuilds writes each included-build definition followed by a
// first-seen flag from the stored-builds ledger. Only the first reference to
// a root directory carries the build's full state, in a separate file;
// later references resolve to that file on read.
func (w *Writer) writeIncludedBuilds(
	enc *codec.Encoder,
	build ports.BuildModel,
	file ports.StateFile,
	stored *StoredBuilds,
) error {
	children := build.IncludedBuilds()
	return enc.WriteCollection(len(children), func(i int) error {
		child := children[i]
		return enc.WithFrame("included build "+child.Name, func() error {
			if err := enc.WriteString(child.Name); err != nil {
				return err
			}
			if err := enc.WriteFile(child.RootDir); err != nil {
				return err
			}
			if err := enc.WriteString(child.OriginPath); err != nil {
				return err
			}

			first := stored.FirstSeen(child.RootDir)
			if err := enc.WriteBool(first); err != nil {
				return err
			}
			if !first {
				return nil
			}
			childFile := file.StateFileForIncludedBuild(child.RootDir)
			return w.writeIncludedBuild(child.Build, childFile, stored)
		})
	})
}

// writeWorkGraphState writes the relevant-projects set followed by the
// scheduled work graph. Projects are written in gap-filled order so the read
// side can materialize every parent before its children, before any node
// decoding needs them.
func (w *Writer) writeWorkGraphState(enc *codec.Encoder, build *domain.Build) error {
	nodes := w.scheduler.ScheduledWork(build)
	return enc.WithIsolate(func() error {
		return enc.WithFrame("work graph", func() error {
			projects, err := relevantProjects(build, nodes)
			if err != nil {
				return err
			}
			err = enc.WriteCollection(len(projects), func(i int) error {
				p := projects[i]
				if err := enc.WriteString(p.Path); err != nil {
					return err
				}
				if err := enc.WriteFile(p.Dir); err != nil {
					return err
				}
				return enc.WriteFile(p.BuildDir)
			})
			if err != nil {
				return err
			}
			return writeWorkGraph(enc, nodes)
		})
	})
}

// relevantProjects derives the projects referenced by any scheduled node, in
// first-reference order, completed with their ancestors.
func relevantProjects(build *domain.Build, nodes []*domain.WorkNode) ([]*domain.Project, error) {
	seen := make(map[string]struct{})
	var projects []*domain.Project
	for _, node := range nodes {
		path := node.ProjectPath.String()
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		p, err := build.ProjectByPath(path)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return FillGaps(projects), nil
}

// nullable converts a typed nil pointer into an untyped nil for WriteValue.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return v
}
