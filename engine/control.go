// File: engine/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/control"
)

// controlAdapter bundles the config store, metrics registry, and debug
// probes behind the api.Control contract for the external control channel.
type controlAdapter struct {
	cs      *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*controlAdapter)(nil)

// Control returns this context's api.Control surface.
func (c *Context) Control() api.Control {
	return &controlAdapter{cs: c.links.Store(), metrics: c.metrics, debug: c.debug}
}

func (a *controlAdapter) GetConfig() map[string]any { return a.cs.GetSnapshot() }

func (a *controlAdapter) SetConfig(cfg map[string]any) error {
	a.cs.SetConfig(cfg)
	return nil
}

func (a *controlAdapter) Stats() map[string]any { return a.metrics.GetSnapshot() }

func (a *controlAdapter) OnReload(fn func()) { a.cs.OnReload(fn) }

func (a *controlAdapter) RegisterDebugProbe(name string, fn func() any) {
	a.debug.RegisterProbe(name, fn)
}
