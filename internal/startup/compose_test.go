package startup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	return NewComposer(catalog, logr.Discard())
}

func TestComposeEmitsHarnessOnce(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		Ports: []PortMapping{{External: 8080, Internal: 8080}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash\n"))
	assert.Equal(t, 1, strings.Count(script, "set -euo pipefail"))
	assert.Equal(t, 1, strings.Count(script, "BASH_VERSION"))
	assert.Contains(t, script, `die()`)
	assert.Contains(t, script, `warn()`)
}

func TestComposePortForwardingArtifactsPerMapping(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		Ports: []PortMapping{
			{External: 8080, Internal: 80},
			{External: 6006, Internal: 6006},
		},
	})
	require.NoError(t, err)

	// One systemd unit keyed by internal port, one nginx site keyed by
	// external port, per mapping.
	assert.Equal(t, 1, strings.Count(script, "/etc/systemd/system/flow-cert-80.service"))
	assert.Equal(t, 1, strings.Count(script, "/etc/systemd/system/flow-cert-6006.service"))
	assert.Equal(t, 1, strings.Count(script, "/etc/nginx/sites-available/flow-8080.conf <<"))
	assert.Equal(t, 1, strings.Count(script, "/etc/nginx/sites-available/flow-6006.conf <<"))
	assert.Contains(t, script, "listen 8080 ssl;")
	assert.Contains(t, script, "proxy_pass http://127.0.0.1:80;")
}

func TestComposeRejectsDuplicateInternalPorts(t *testing.T) {
	composer := newTestComposer(t)

	_, err := composer.Compose(Request{
		Ports: []PortMapping{
			{External: 8080, Internal: 80},
			{External: 9090, Internal: 80},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate internal port 80")
}

func TestComposeRejectsDuplicateExternalPorts(t *testing.T) {
	composer := newTestComposer(t)

	_, err := composer.Compose(Request{
		Ports: []PortMapping{
			{External: 8080, Internal: 80},
			{External: 8080, Internal: 6006},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate external port 8080")
}

func TestComposeRejectsOutOfRangePorts(t *testing.T) {
	composer := newTestComposer(t)

	tests := []struct {
		name string
		port PortMapping
	}{
		{name: "external zero", port: PortMapping{External: 0, Internal: 80}},
		{name: "internal zero", port: PortMapping{External: 80, Internal: 0}},
		{name: "external too high", port: PortMapping{External: 65536, Internal: 80}},
		{name: "internal too high", port: PortMapping{External: 80, Internal: 70000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := composer.Compose(Request{Ports: []PortMapping{tt.port}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestComposeEphemeralMountsPreserveDeclarationOrder(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		EphemeralMounts: []Mount{
			{Device: "/dev/sdb", Dir: "/mnt/a"},
			{Device: "/dev/sdc", Dir: "/mnt/b"},
		},
	})
	require.NoError(t, err)

	first := strings.Index(script, "/mnt/a")
	second := strings.Index(script, "/mnt/b")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second, "operations for /mnt/a must textually precede /mnt/b")
}

func TestComposeRejectsDuplicateEphemeralDestinations(t *testing.T) {
	composer := newTestComposer(t)

	_, err := composer.Compose(Request{
		EphemeralMounts: []Mount{
			{Device: "/dev/sdb", Dir: "/mnt/a"},
			{Device: "/dev/sdc", Dir: "/mnt/a"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate ephemeral mount destination")
}

func TestComposePersistentStorageEmbedsMountPointList(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		PersistentMountPoints: []string{"/mnt/vol0", "/mnt/vol1", "/mnt/vol2"},
	})
	require.NoError(t, err)

	assert.Contains(t, script, `flow_mount_points=("/mnt/vol0" "/mnt/vol1" "/mnt/vol2" )`)
	// Too few devices is fatal, extra devices only warn.
	assert.Contains(t, script, "die \"persistent storage: need")
	assert.Contains(t, script, "warn \"persistent storage:")
	assert.Contains(t, script, "ignoring extras")
}

func TestComposeContainerBuildVersusPull(t *testing.T) {
	composer := newTestComposer(t)

	pull, err := composer.Compose(Request{
		Container: &ContainerSpec{Image: "app:latest"},
	})
	require.NoError(t, err)
	assert.Contains(t, pull, `docker pull "app:latest"`)
	assert.NotContains(t, pull, "docker build")

	build, err := composer.Compose(Request{
		Container: &ContainerSpec{Image: "app:latest", BuildContext: "/src"},
	})
	require.NoError(t, err)
	assert.Contains(t, build, `docker build -t "app:latest" "/src"`)
	assert.NotContains(t, build, "docker pull")
}

func TestComposeRejectsContainerWithoutImage(t *testing.T) {
	composer := newTestComposer(t)

	_, err := composer.Compose(Request{Container: &ContainerSpec{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image name")
}

func TestComposeSegmentOrdering(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		Ports:                 []PortMapping{{External: 8080, Internal: 8080}},
		EphemeralMounts:       []Mount{{Device: "/dev/sdb", Dir: "/mnt/scratch"}},
		PersistentMountPoints: []string{"/mnt/data"},
		Container:             &ContainerSpec{Image: "app:latest"},
	})
	require.NoError(t, err)

	ephemeral := strings.Index(script, "step: ephemeral storage")
	persistent := strings.Index(script, "step: persistent storage")
	container := strings.Index(script, "step: container image")
	ports := strings.Index(script, "step: port forwarding")
	for name, idx := range map[string]int{
		"ephemeral": ephemeral, "persistent": persistent,
		"container": container, "ports": ports,
	} {
		require.GreaterOrEqual(t, idx, 0, "missing %s section", name)
	}

	// Storage before container, container before port forwarding.
	assert.Less(t, ephemeral, container)
	assert.Less(t, persistent, container)
	assert.Less(t, container, ports)
}

func TestComposeCustomScriptRunsBeforeProxyGoesLive(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		Ports:        []PortMapping{{External: 8080, Internal: 8080}},
		CustomScript: "echo 'hello from user'",
	})
	require.NoError(t, err)

	custom := strings.Index(script, "hello from user")
	ports := strings.Index(script, "step: port forwarding")
	require.GreaterOrEqual(t, custom, 0)
	require.GreaterOrEqual(t, ports, 0)
	assert.Less(t, custom, ports)
}

func TestComposeOmitsUnrequestedSegments(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{
		Ports: []PortMapping{{External: 8080, Internal: 8080}},
	})
	require.NoError(t, err)

	assert.NotContains(t, script, "step: ephemeral storage")
	assert.NotContains(t, script, "step: persistent storage")
	assert.NotContains(t, script, "step: container image")
}

func TestComposeEmptyRequestIsHarnessOnly(t *testing.T) {
	composer := newTestComposer(t)

	script, err := composer.Compose(Request{})
	require.NoError(t, err)
	assert.Contains(t, script, "set -euo pipefail")
	assert.NotContains(t, script, "step:")
}

func TestComposeIsDeterministic(t *testing.T) {
	composer := newTestComposer(t)
	req := Request{
		Ports:           []PortMapping{{External: 8080, Internal: 80}},
		EphemeralMounts: []Mount{{Device: "/dev/sdb", Dir: "/mnt/a"}},
	}

	first, err := composer.Compose(req)
	require.NoError(t, err)
	second, err := composer.Compose(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOrderSegmentsRejectsCycles(t *testing.T) {
	a := &Segment{Name: "a", DependsOn: []string{"b"}}
	b := &Segment{Name: "b", DependsOn: []string{"a"}}
	_, err := orderSegments([]*Segment{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestComposeManyMappingsScalesArtifacts(t *testing.T) {
	composer := newTestComposer(t)

	var ports []PortMapping
	for i := 0; i < 5; i++ {
		ports = append(ports, PortMapping{External: 8000 + i, Internal: 9000 + i})
	}
	script, err := composer.Compose(Request{Ports: ports})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, strings.Count(script, fmt.Sprintf("/etc/systemd/system/flow-cert-%d.service", 9000+i)))
		assert.Equal(t, 1, strings.Count(script, fmt.Sprintf("flow-%d.conf <<", 8000+i)))
	}
}
