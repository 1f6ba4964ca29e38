package startup

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// PortMapping forwards TLS traffic arriving on External to the workload
// listening on Internal. Both ports must be in [1, 65535].
type PortMapping struct {
	External int
	Internal int
}

// Mount maps a source block device to a destination mount path. The order of
// a request's mounts is significant: later fstab entries depend on earlier
// mkdir and format calls for the same path.
type Mount struct {
	Device string
	Dir    string
}

// ContainerSpec describes an optional container workload. A non-empty
// BuildContext selects the build-then-run path; otherwise the image is
// pulled. RunOptions are passed verbatim to the container runtime.
type ContainerSpec struct {
	Image        string
	BuildContext string
	RunOptions   string
}

// Request carries the provisioning parameters one composition consumes.
// Optional fields select which segments are included.
type Request struct {
	Ports                 []PortMapping
	EphemeralMounts       []Mount
	PersistentMountPoints []string
	Container             *ContainerSpec

	// CustomScript is user-supplied shell appended verbatim after
	// workload setup, before the proxy goes live.
	CustomScript string
}

// harness is emitted once at the top of every composed script. The re-exec
// guard covers first-boot hooks that invoke the script through sh.
const harness = `#!/bin/bash
if [ -z "${BASH_VERSION:-}" ]; then
  exec /bin/bash "$0" "$@"
fi
set -euo pipefail
log()  { echo "[$(date -u '+%Y-%m-%dT%H:%M:%SZ')] [flow] $*"; }
warn() { echo "[$(date -u '+%Y-%m-%dT%H:%M:%SZ')] [flow] WARNING: $*" >&2; }
die()  { echo "[$(date -u '+%Y-%m-%dT%H:%M:%SZ')] [flow] ERROR: $*" >&2; exit 1; }
`

// Composer assembles provisioning requests into a single startup script.
type Composer struct {
	catalog *Catalog
	log     logr.Logger
}

// NewComposer returns a Composer reading segments from catalog.
func NewComposer(catalog *Catalog, log logr.Logger) *Composer {
	return &Composer{catalog: catalog, log: log}
}

// Compose validates the request, renders the applicable segments and
// concatenates them in dependency order under the shared harness.
func (c *Composer) Compose(req Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	selected, contexts, err := c.selectSegments(req)
	if err != nil {
		return "", err
	}
	ordered, err := orderSegments(selected)
	if err != nil {
		return "", err
	}

	parts := []string{harness}
	for _, seg := range ordered {
		text, err := seg.Template.Render(contexts[seg.Name])
		if err != nil {
			return "", err
		}
		c.log.V(1).Info("rendered segment", "segment", seg.Name, "bytes", len(text))
		parts = append(parts, strings.TrimRight(text, "\n"))
	}

	if req.CustomScript != "" {
		parts = insertBeforePortForwarding(parts, ordered,
			"# --- user startup script ---\n"+strings.TrimRight(req.CustomScript, "\n"))
	}

	script := strings.Join(parts, "\n") + "\n"
	c.log.V(1).Info("composed startup script", "segments", len(ordered), "bytes", len(script))
	return script, nil
}

func validateRequest(req Request) error {
	seenInternal := make(map[int]struct{}, len(req.Ports))
	seenExternal := make(map[int]struct{}, len(req.Ports))
	for _, pm := range req.Ports {
		if pm.External < 1 || pm.External > 65535 {
			return fmt.Errorf("external port %d out of range [1, 65535]", pm.External)
		}
		if pm.Internal < 1 || pm.Internal > 65535 {
			return fmt.Errorf("internal port %d out of range [1, 65535]", pm.Internal)
		}
		if _, dup := seenInternal[pm.Internal]; dup {
			return fmt.Errorf("duplicate internal port %d: internal ports discriminate generated unit files and must be unique", pm.Internal)
		}
		seenInternal[pm.Internal] = struct{}{}
		if _, dup := seenExternal[pm.External]; dup {
			return fmt.Errorf("duplicate external port %d: external ports discriminate generated nginx site files and must be unique", pm.External)
		}
		seenExternal[pm.External] = struct{}{}
	}

	seenDir := make(map[string]struct{}, len(req.EphemeralMounts))
	for _, m := range req.EphemeralMounts {
		if m.Device == "" || m.Dir == "" {
			return fmt.Errorf("ephemeral mount requires both device and destination path")
		}
		if _, dup := seenDir[m.Dir]; dup {
			return fmt.Errorf("duplicate ephemeral mount destination %q", m.Dir)
		}
		seenDir[m.Dir] = struct{}{}
	}

	for _, p := range req.PersistentMountPoints {
		if p == "" {
			return fmt.Errorf("persistent mount point must not be empty")
		}
	}

	if req.Container != nil && req.Container.Image == "" {
		return fmt.Errorf("container spec requires an image name")
	}
	return nil
}

// selectSegments picks the segments the request needs and builds each
// segment's private render context.
func (c *Composer) selectSegments(req Request) ([]*Segment, map[string]Context, error) {
	var names []string
	contexts := make(map[string]Context)

	if len(req.EphemeralMounts) > 0 {
		mounts := make(Pairs, 0, len(req.EphemeralMounts))
		for _, m := range req.EphemeralMounts {
			mounts = append(mounts, Pair{Key: String(m.Device), Value: String(m.Dir)})
		}
		names = append(names, SegmentEphemeralStorage)
		contexts[SegmentEphemeralStorage] = Context{"ephemeral_mounts": mounts}
	}

	if len(req.PersistentMountPoints) > 0 {
		points := make(List, 0, len(req.PersistentMountPoints))
		for _, p := range req.PersistentMountPoints {
			points = append(points, String(p))
		}
		names = append(names, SegmentPersistentStorage)
		contexts[SegmentPersistentStorage] = Context{"mount_points": points}
	}

	if req.Container != nil {
		names = append(names, SegmentContainerImage)
		contexts[SegmentContainerImage] = Context{
			"image_name":    String(req.Container.Image),
			"build_context": String(req.Container.BuildContext),
			"run_options":   String(req.Container.RunOptions),
		}
	}

	if len(req.Ports) > 0 {
		mappings := make(Pairs, 0, len(req.Ports))
		for _, pm := range req.Ports {
			mappings = append(mappings, Pair{Key: Int(pm.External), Value: Int(pm.Internal)})
		}
		names = append(names, SegmentPortForwarding)
		contexts[SegmentPortForwarding] = Context{"port_mappings": mappings}
	}

	segments := make([]*Segment, 0, len(names))
	for _, name := range names {
		seg, err := c.catalog.Get(name)
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, seg)
	}
	return segments, contexts, nil
}

// orderSegments topologically sorts the selected segments by their declared
// dependencies. Ties break on selection order, which keeps output stable.
// A dependency cycle is a catalog authoring bug and is rejected.
func orderSegments(segments []*Segment) ([]*Segment, error) {
	selected := make(map[string]*Segment, len(segments))
	for _, seg := range segments {
		selected[seg.Name] = seg
	}

	indegree := make(map[string]int, len(segments))
	for _, seg := range segments {
		indegree[seg.Name] = 0
	}
	for _, seg := range segments {
		for _, dep := range seg.DependsOn {
			if _, ok := selected[dep]; ok {
				indegree[seg.Name]++
			}
		}
	}

	var ordered []*Segment
	for len(ordered) < len(segments) {
		progressed := false
		for _, seg := range segments {
			if indegree[seg.Name] != 0 {
				continue
			}
			ordered = append(ordered, seg)
			indegree[seg.Name] = -1
			progressed = true
			for _, other := range segments {
				for _, dep := range other.DependsOn {
					if dep == seg.Name {
						indegree[other.Name]--
					}
				}
			}
		}
		if !progressed {
			return nil, fmt.Errorf("segment dependency cycle detected")
		}
	}
	return ordered, nil
}

// insertBeforePortForwarding places the custom script part just ahead of the
// port forwarding segment when present, otherwise at the end. The proxy must
// not go live before user setup has run.
func insertBeforePortForwarding(parts []string, ordered []*Segment, custom string) []string {
	// parts[0] is the harness; rendered segments follow in order.
	for i, seg := range ordered {
		if seg.Name == SegmentPortForwarding {
			idx := i + 1
			out := make([]string, 0, len(parts)+1)
			out = append(out, parts[:idx]...)
			out = append(out, custom)
			out = append(out, parts[idx:]...)
			return out
		}
	}
	return append(parts, custom)
}
