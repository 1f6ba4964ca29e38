package startup

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Segment names registered in the catalog.
const (
	SegmentPortForwarding    = "port_forwarding"
	SegmentEphemeralStorage  = "ephemeral_storage"
	SegmentPersistentStorage = "persistent_storage"
	SegmentContainerImage    = "container_image"
	SegmentBootstrap         = "bootstrap"
)

// catalogVersion is the only segment document version this build understands.
const catalogVersion = 1

//go:embed segments.yaml
var segmentsDoc []byte

// segmentDeps declares, per segment, which other segments must execute
// before it. The composer topologically orders selected segments from this
// table instead of relying on an implicit convention. The bootstrap segment
// is a transport wrapper and never composed alongside the others.
var segmentDeps = map[string][]string{
	SegmentEphemeralStorage:  nil,
	SegmentPersistentStorage: nil,
	SegmentContainerImage:    {SegmentEphemeralStorage, SegmentPersistentStorage},
	SegmentPortForwarding:    {SegmentEphemeralStorage, SegmentPersistentStorage, SegmentContainerImage},
	SegmentBootstrap:         nil,
}

// Segment is a named, independently renderable fragment of the provisioning
// script. Segments are immutable once loaded.
type Segment struct {
	Name     string
	Template *Template

	// DependsOn lists segments that must precede this one in the
	// composed script.
	DependsOn []string
}

// Catalog holds the loaded segments. It is read-only after LoadCatalog
// returns and therefore safe for concurrent use by in-flight compositions.
type Catalog struct {
	segments map[string]*Segment
}

type segmentDocument struct {
	Version   int               `yaml:"version"`
	Templates map[string]string `yaml:"templates"`
}

// LoadCatalog parses the embedded segment document and validates every
// template body. Validation failures surface here, at load time, so a
// catalog-wide check can run in tests independent of any request.
func LoadCatalog() (*Catalog, error) {
	return loadCatalog(segmentsDoc)
}

func loadCatalog(doc []byte) (*Catalog, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse segment document: %w", err)
	}
	for key := range raw {
		if key != "version" && key != "templates" {
			return nil, fmt.Errorf("segment document: unknown top-level key %q", key)
		}
	}

	var parsed segmentDocument
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode segment document: %w", err)
	}
	if parsed.Version != catalogVersion {
		return nil, fmt.Errorf("segment document: unsupported version %d (want %d)", parsed.Version, catalogVersion)
	}
	if len(parsed.Templates) == 0 {
		return nil, fmt.Errorf("segment document: no templates defined")
	}

	c := &Catalog{segments: make(map[string]*Segment, len(parsed.Templates))}

	// Deterministic iteration keeps load-time error reporting stable.
	names := make([]string, 0, len(parsed.Templates))
	for name := range parsed.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		deps, known := segmentDeps[name]
		if !known {
			return nil, fmt.Errorf("segment document: unrecognized segment %q", name)
		}
		tmpl, err := ParseTemplate(name, parsed.Templates[name])
		if err != nil {
			return nil, err
		}
		c.segments[name] = &Segment{Name: name, Template: tmpl, DependsOn: deps}
	}

	for name := range segmentDeps {
		if _, ok := c.segments[name]; !ok {
			return nil, fmt.Errorf("segment document: missing segment %q", name)
		}
	}
	return c, nil
}

// Get returns the named segment or an UnknownSegmentError.
func (c *Catalog) Get(name string) (*Segment, error) {
	seg, ok := c.segments[name]
	if !ok {
		return nil, &UnknownSegmentError{Name: name}
	}
	return seg, nil
}
