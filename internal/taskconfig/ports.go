package taskconfig

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PortSpec is a single port or an inclusive "start-end" range, written in
// YAML as either an integer or a string.
type PortSpec struct {
	spec string
}

// UnmarshalYAML accepts integer and string scalars.
func (s *PortSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("port must be an integer or a string")
	}
	s.spec = strings.TrimSpace(node.Value)
	return nil
}

// IsZero reports whether the spec was absent from the document.
func (s PortSpec) IsZero() bool {
	return s.spec == ""
}

func (s PortSpec) String() string {
	return s.spec
}

// Expand returns the list of port numbers the spec covers, in ascending
// order for ranges.
func (s PortSpec) Expand() ([]int, error) {
	if s.spec == "" {
		return nil, fmt.Errorf("port cannot be empty")
	}
	if strings.Contains(s.spec, "-") {
		parts := strings.SplitN(s.spec, "-", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("port range %q must contain valid integers", s.spec)
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("port range %q must contain valid integers", s.spec)
		}
		if start < 1 || start > end || end > 65535 {
			return nil, fmt.Errorf("port range %q must be between 1 and 65535 with start <= end", s.spec)
		}
		ports := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			ports = append(ports, p)
		}
		return ports, nil
	}

	port, err := strconv.Atoi(s.spec)
	if err != nil {
		return nil, fmt.Errorf("invalid port specification %q: must be an integer", s.spec)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port number %d must be between 1 and 65535", port)
	}
	return []int{port}, nil
}

// PortMapping pairs one external port with the internal port it forwards to.
type PortMapping struct {
	External int
	Internal int
}

// Port is one entry of the ports list. A bare scalar forwards a port to
// itself; a mapping names external and internal sides explicitly, each of
// which may be a range of equal length.
type Port struct {
	External PortSpec `yaml:"external"`
	Internal PortSpec `yaml:"internal"`
	Protocol string   `yaml:"protocol"`
}

// UnmarshalYAML handles both the scalar and the mapping form.
func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var spec PortSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		p.External = spec
		p.Internal = spec
		p.Protocol = "tcp"
		return nil
	case yaml.MappingNode:
		type plain Port
		var raw plain
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.Protocol == "" {
			raw.Protocol = "tcp"
		}
		*p = Port(raw)
		return nil
	default:
		return fmt.Errorf("invalid port specification: expected integer, string, or mapping")
	}
}

func (p Port) validate() error {
	if p.External.IsZero() {
		return fmt.Errorf("'external' port cannot be empty")
	}
	if p.Internal.IsZero() {
		return fmt.Errorf("'internal' port cannot be empty")
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("invalid protocol %q: must be tcp or udp", p.Protocol)
	}
	if _, err := p.Mappings(); err != nil {
		return err
	}
	return nil
}

// Mappings expands both sides and pairs them positionally. Ranges on the
// two sides must cover the same number of ports.
func (p Port) Mappings() ([]PortMapping, error) {
	external, err := p.External.Expand()
	if err != nil {
		return nil, err
	}
	internal, err := p.Internal.Expand()
	if err != nil {
		return nil, err
	}
	if len(external) != len(internal) {
		return nil, fmt.Errorf(
			"port ranges do not match in length for external (%s) and internal (%s) ports",
			p.External, p.Internal)
	}
	mappings := make([]PortMapping, len(external))
	for i := range external {
		mappings[i] = PortMapping{External: external[i], Internal: internal[i]}
	}
	return mappings, nil
}
