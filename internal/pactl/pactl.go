// Package pactl drives the PulseAudio/PipeWire control tool to snapshot
// and restore default routing and to unload virtual modules the loopback
// setup created.
//
// The audio server's default routing and module table are process-wide
// external state. Flow within livecap is strictly sequential, so no
// in-process lock is taken; concurrent processes mutating the same audio
// server are an unprotected external resource and get best-effort
// semantics only.
package pactl

import (
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SyntheticPrefix marks sinks and sources livecap creates for internal
// routing, as opposed to physical hardware.
const SyntheticPrefix = "livecap_"

type runFunc func(name string, args ...string) ([]byte, error)

// Client wraps the pactl binary. The zero command runner executes the
// real tool; tests inject a fake.
type Client struct {
	run      runFunc
	lookPath func(string) (string, error)
	log      zerolog.Logger
}

// New returns a Client backed by the pactl binary on PATH.
func New(log zerolog.Logger) *Client {
	return &Client{
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		lookPath: exec.LookPath,
		log:      log,
	}
}

// Available reports whether the control tool is on PATH.
func (c *Client) Available() bool {
	_, err := c.lookPath("pactl")
	return err == nil
}

// Defaults is the default sink/source pair reported by the server.
type Defaults struct {
	Sink   string
	Source string
}

// Defaults parses the current default sink and source from pactl status
// output. ok is false when the tool is missing or reports neither.
func (c *Client) Defaults() (Defaults, bool) {
	out, err := c.run("pactl", "info")
	if err != nil {
		return Defaults{}, false
	}

	var d Defaults
	for _, line := range strings.Split(string(out), "\n") {
		if rest, found := strings.CutPrefix(line, "Default Sink:"); found {
			d.Sink = strings.TrimSpace(rest)
		} else if rest, found := strings.CutPrefix(line, "Default Source:"); found {
			d.Source = strings.TrimSpace(rest)
		}
	}
	return d, d.Sink != "" || d.Source != ""
}

// RestoreDefaults reapplies a captured default pair. Best effort:
// individual failures are logged, never returned.
func (c *Client) RestoreDefaults(d Defaults) {
	if d.Sink != "" {
		c.setDefault("sink", d.Sink)
	}
	if d.Source != "" {
		c.setDefault("source", d.Source)
	}
}

func (c *Client) setDefault(kind, name string) {
	if _, err := c.run("pactl", "set-default-"+kind, name); err != nil {
		c.log.Debug().Err(err).Str(kind, name).Msg("pactl set-default failed")
	}
}

// ModuleSnapshot records the loaded virtual-module instances by kind.
type ModuleSnapshot struct {
	NullSinks map[string]struct{}
	Loopbacks map[string]struct{}
}

// NewModuleSnapshot returns an empty snapshot with initialized sets.
func NewModuleSnapshot() ModuleSnapshot {
	return ModuleSnapshot{
		NullSinks: map[string]struct{}{},
		Loopbacks: map[string]struct{}{},
	}
}

// Modules snapshots the currently loaded null-sink and loopback module
// instances from the tab-separated module listing.
func (c *Client) Modules() ModuleSnapshot {
	snapshot := NewModuleSnapshot()

	out, err := c.run("pactl", "list", "short", "modules")
	if err != nil {
		return snapshot
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		id, name := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		switch name {
		case "module-null-sink":
			snapshot.NullSinks[id] = struct{}{}
		case "module-loopback":
			snapshot.Loopbacks[id] = struct{}{}
		}
	}
	return snapshot
}

// Diff returns after − before per kind. Pre-existing modules never
// appear in the result, so routing livecap did not create is never
// destroyed.
func Diff(before, after ModuleSnapshot) ModuleSnapshot {
	diff := NewModuleSnapshot()
	for id := range after.NullSinks {
		if _, ok := before.NullSinks[id]; !ok {
			diff.NullSinks[id] = struct{}{}
		}
	}
	for id := range after.Loopbacks {
		if _, ok := before.Loopbacks[id]; !ok {
			diff.Loopbacks[id] = struct{}{}
		}
	}
	return diff
}

// UnloadModules unloads the given instances, loopbacks before null
// sinks so no loopback is left referencing a vanished sink.
func (c *Client) UnloadModules(s ModuleSnapshot) {
	for _, id := range sortedIDs(s.Loopbacks) {
		c.unload(id)
	}
	for _, id := range sortedIDs(s.NullSinks) {
		c.unload(id)
	}
}

// DiffUnload unloads only the module instances created between the two
// snapshots.
func (c *Client) DiffUnload(before, after ModuleSnapshot) {
	c.UnloadModules(Diff(before, after))
}

func (c *Client) unload(id string) {
	if _, err := c.run("pactl", "unload-module", id); err != nil {
		c.log.Debug().Err(err).Str("module", id).Msg("pactl unload-module failed")
	}
}

// sortedIDs orders module ids numerically ascending for deterministic
// unload order; non-numeric ids sort after numeric ones.
func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return ids[i] < ids[j]
	})
	return ids
}

// EnsurePhysicalDefaults reassigns the default sink/source to the first
// remaining physical device when the current defaults still point at a
// synthetic device or a monitor. Best effort, never fatal.
func (c *Client) EnsurePhysicalDefaults() {
	defaults, ok := c.Defaults()
	if !ok {
		return
	}

	sinks := c.listShortNames("sinks")
	sources := c.listShortNames("sources")

	var physicalSinks []string
	for _, name := range sinks {
		if !strings.Contains(name, SyntheticPrefix) {
			physicalSinks = append(physicalSinks, name)
		}
	}
	var physicalSources []string
	for _, name := range sources {
		if !strings.Contains(name, SyntheticPrefix) && !strings.Contains(name, ".monitor") {
			physicalSources = append(physicalSources, name)
		}
	}

	if strings.Contains(defaults.Sink, SyntheticPrefix) && len(physicalSinks) > 0 {
		c.setDefault("sink", physicalSinks[0])
	}
	if (strings.Contains(defaults.Source, SyntheticPrefix) || strings.HasSuffix(defaults.Source, ".monitor")) &&
		len(physicalSources) > 0 {
		c.setDefault("source", physicalSources[0])
	}
}

func (c *Client) listShortNames(kind string) []string {
	out, err := c.run("pactl", "list", "short", kind)
	if err != nil {
		return nil
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) >= 2 {
			names = append(names, strings.TrimSpace(fields[1]))
		}
	}
	return names
}
