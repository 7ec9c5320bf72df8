package state

import "go.trai.ch/keel/internal/core/ports"

var _ ports.PluginAdapter = NoopPlugin{}

// NoopPlugin is a PluginAdapter that carries no state. Builds without plugins
// use it; ShouldSave reports false so no plugin section body is written.
type NoopPlugin struct{}

func (NoopPlugin) ShouldSave() bool          { return false }
func (NoopPlugin) Snapshot() ([]byte, error) { return nil, nil }
func (NoopPlugin) Restore([]byte) error      { return nil }
