package state

import (
	"fmt"

	"go.trai.ch/keel/internal/codec"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reader reconstructs a build tree from the state store, mirroring the
// writer's order step for step.
type Reader struct {
	scheduler ports.WorkScheduler
	plugin    ports.PluginAdapter
	log       ports.Logger
	table     *codec.Table
}

// NewReader creates a reader. plugin may be nil; a stored plugin snapshot is
// then kept on the build model without being restored.
func NewReader(scheduler ports.WorkScheduler, plugin ports.PluginAdapter, log ports.Logger) *Reader {
	return &Reader{
		scheduler: scheduler,
		plugin:    plugin,
		log:       log,
		table:     NewCodecTable(),
	}
}

// ReadRootBuild reads the full state of the build rooted at rootDir and
// returns a build model ready for task execution.
func (r *Reader) ReadRootBuild(file ports.StateFile, rootDir string) (*domain.Build, error) {
	ledger := make(map[string]*domain.Build)

	build, err := r.readStateFile(file, rootDir, func(dec *codec.Decoder, build *domain.Build) error {
		return dec.WithFrame("root build", func() error {
			if err := r.readBuildTreeState(dec, build); err != nil {
				return err
			}
			if err := r.readBuildState(dec, build, file, ledger); err != nil {
				return err
			}
			return r.readWorkGraphState(dec, build)
		})
	})
	if err != nil {
		return nil, err
	}

	r.scheduler.PrepareForTaskExecution(build)
	return build, nil
}

// readStateFile opens file, reads the display name, runs body, and verifies
// the trailing sentinel. Any sentinel mismatch surfaces as ErrCorruptState.
func (r *Reader) readStateFile(
	file ports.StateFile,
	rootDir string,
	body func(dec *codec.Decoder, build *domain.Build) error,
) (build *domain.Build, err error) {
	in, err := file.InputStream()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open state file for reading"), "build_dir", rootDir)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = zerr.Wrap(closeErr, "failed to close state file")
		}
	}()

	dec := codec.NewDecoder(in, r.table)
	name, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	build = domain.NewBuild(name, rootDir)

	if err := body(dec, build); err != nil {
		return nil, err
	}

	sentinel, err := dec.ReadFixed32()
	if err != nil {
		return nil, zerr.With(domain.ErrCorruptState, "build_dir", rootDir)
	}
	if sentinel != stateFileSentinel {
		return nil, zerr.With(domain.ErrCorruptState, "sentinel", fmt.Sprintf("%#x", sentinel))
	}
	return build, nil
}

func (r *Reader) readBuildTreeState(dec *codec.Decoder, build ports.BuildModel) error {
	return dec.WithIsolate(func() error {
		return dec.WithFrame("build tree state", func() error {
			local, err := readNullable[domain.LocalCacheConfig](dec)
			if err != nil {
				return err
			}
			build.SetBuildCacheLocal(local)

			remote, err := readNullable[domain.RemoteCacheConfig](dec)
			if err != nil {
				return err
			}
			build.SetBuildCacheRemote(remote)

			listeners, err := dec.ReadStrings()
			if err != nil {
				return err
			}
			build.SubscribeListeners(listeners)

			return r.readPluginState(dec, build)
		})
	})
}

func (r *Reader) readPluginState(dec *codec.Decoder, build ports.BuildModel) error {
	saved, err := dec.ReadBool()
	if err != nil {
		return err
	}
	if !saved {
		return nil
	}
	snapshot, err := dec.ReadBytes()
	if err != nil {
		return err
	}
	build.SetPluginSnapshot(snapshot)
	if r.plugin == nil {
		return nil
	}
	if err := r.plugin.Restore(snapshot); err != nil {
		return zerr.Wrap(err, "failed to restore plugin state")
	}
	return nil
}

func (r *Reader) readBuildState(
	dec *codec.Decoder,
	build ports.BuildModel,
	file ports.StateFile,
	ledger map[string]*domain.Build,
) error {
	taskNames, err := dec.ReadStrings()
	if err != nil {
		return err
	}
	build.SetStartParameterTaskNames(taskNames)

	unsupported, err := dec.ReadBool()
	if err != nil {
		return err
	}
	if unsupported {
		build.MarkUnsupportedFeatures()
		r.log.Warn("build state was captured with features the state cache does not support; they were not restored")
	}

	if err := r.readIncludedBuilds(dec, build, file, ledger); err != nil {
		return err
	}

	return dec.ReadCollection(func(int) error {
		files, err := dec.ReadStrings()
		if err != nil {
			return err
		}
		build.RegisterOutputCleanup(files)
		return nil
	})
}

func (r *Reader) readIncludedBuilds(
	dec *codec.Decoder,
	build ports.BuildModel,
	file ports.StateFile,
	ledger map[string]*domain.Build,
) error {
	var children []*domain.IncludedBuild
	err := dec.ReadCollection(func(int) error {
		name, err := dec.ReadString()
		if err != nil {
			return err
		}
		rootDir, err := dec.ReadFile()
		if err != nil {
			return err
		}
		originPath, err := dec.ReadString()
		if err != nil {
			return err
		}
		first, err := dec.ReadBool()
		if err != nil {
			return err
		}

		var target *domain.Build
		if first {
			childFile := file.StateFileForIncludedBuild(rootDir)
			target, err = r.readIncludedBuild(childFile, rootDir, ledger)
			if err != nil {
				return err
			}
			ledger[rootDir] = target
		} else {
			// The build was serialized under an earlier reference; both
			// handles resolve to the one decoded state.
			target = ledger[rootDir]
			if target == nil {
				return zerr.With(domain.ErrCorruptState, "included_build_dir", rootDir)
			}
		}

		children = append(children, &domain.IncludedBuild{
			Name:       name,
			RootDir:    rootDir,
			OriginPath: originPath,
			Build:      target,
		})
		return nil
	})
	if err != nil {
		return err
	}
	build.SetIncludedBuilds(children)
	return nil
}

func (r *Reader) readIncludedBuild(
	file ports.StateFile,
	rootDir string,
	ledger map[string]*domain.Build,
) (*domain.Build, error) {
	return r.readStateFile(file, rootDir, func(dec *codec.Decoder, build *domain.Build) error {
		return dec.WithFrame("build "+build.Name, func() error {
			if err := r.readBuildState(dec, build, file, ledger); err != nil {
				return err
			}
			return r.readWorkGraphState(dec, build)
		})
	})
}

// readWorkGraphState materializes the relevant projects in stream order,
// finalizes registration, then decodes and schedules the work graph. Node
// decoding relies on the projects already existing.
func (r *Reader) readWorkGraphState(dec *codec.Decoder, build *domain.Build) error {
	return dec.WithIsolate(func() error {
		return dec.WithFrame("work graph", func() error {
			err := dec.ReadCollection(func(int) error {
				path, err := dec.ReadString()
				if err != nil {
					return err
				}
				dir, err := dec.ReadFile()
				if err != nil {
					return err
				}
				buildDir, err := dec.ReadFile()
				if err != nil {
					return err
				}
				r.scheduler.CreateProject(build, path, dir, buildDir)
				return nil
			})
			if err != nil {
				return err
			}
			r.scheduler.RegisterProjects(build)

			nodes, err := readWorkGraph(dec)
			if err != nil {
				return err
			}
			return r.scheduler.ScheduleNodes(build, nodes)
		})
	})
}

// readNullable reads a nullable polymorphic value and asserts its type.
func readNullable[T any](dec *codec.Decoder) (*T, error) {
	v, err := dec.ReadValue()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	typed, ok := v.(*T)
	if !ok {
		return nil, zerr.With(domain.ErrEncoding, "unexpected_value", fmt.Sprintf("%T", v))
	}
	return typed, nil
}
