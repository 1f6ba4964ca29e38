// Package auction selects spot auctions that can host a task.
package auction

import (
	"regexp"
	"strings"

	"github.com/go-logr/logr"

	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/taskconfig"
)

// Matcher checks auctions against a resource specification. Unset criteria
// fields are skipped.
type Matcher struct {
	criteria *taskconfig.ResourcesSpecification
	gpuType  *regexp.Regexp
	log      logr.Logger
}

// NewMatcher compiles the criteria into a Matcher.
func NewMatcher(criteria *taskconfig.ResourcesSpecification, log logr.Logger) *Matcher {
	m := &Matcher{criteria: criteria, log: log}
	if gpu := strings.TrimSpace(criteria.GPUType); gpu != "" {
		// Whole-word match so "a100" does not match "a1000".
		m.gpuType = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(gpu)) + `\b`)
	}
	return m
}

// Matches reports whether the auction satisfies every set criterion.
func (m *Matcher) Matches(a foundry.Auction) bool {
	if reason := m.reject(a); reason != "" {
		m.log.V(1).Info("auction rejected", "cluster_id", a.ClusterID, "reason", reason)
		return false
	}
	return true
}

func (m *Matcher) reject(a foundry.Auction) string {
	if m.gpuType != nil && !m.gpuType.MatchString(strings.ToLower(a.GPUType)) {
		return "gpu type " + a.GPUType + " does not match " + m.criteria.GPUType
	}
	if m.criteria.NumGPUs > 0 && a.InventoryQuantity < m.criteria.NumGPUs {
		return "insufficient gpu inventory"
	}
	if want := m.criteria.InternodeInterconnect; want != "" {
		if !strings.EqualFold(a.InternodeInterconnect, want) {
			return "internode interconnect mismatch"
		}
	}
	if want := m.criteria.IntranodeInterconnect; want != "" {
		if !strings.EqualFold(a.IntranodeInterconnect, want) {
			return "intranode interconnect mismatch"
		}
	}
	if want := m.criteria.FCPInstance; want != "" && a.FCPInstance != want {
		return "fcp instance mismatch"
	}
	return ""
}
