// Package connectivity decides whether the current network attachment
// authorizes remote synchronization.
package connectivity

import (
	"context"
	"fmt"
	"strings"
)

// Snapshot is the live network attachment at one instant. SSID is empty when
// no wireless network is known.
type Snapshot struct {
	SSID    string `json:"ssid,omitempty"`
	WiredUp bool   `json:"wired_up"`
}

// Provider obtains a connectivity snapshot from the platform.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Decision is the gate outcome with a human-readable reason.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Gate evaluates snapshots against the authorized network configuration.
type Gate struct {
	allowedSSIDs map[string]struct{}
	allowWired   bool
}

// NewGate builds a gate from the set of authorized wireless network names
// and the wired-link authorization flag.
func NewGate(allowedSSIDs []string, allowWired bool) *Gate {
	set := make(map[string]struct{}, len(allowedSSIDs))
	for _, ssid := range allowedSSIDs {
		if trimmed := strings.TrimSpace(ssid); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &Gate{allowedSSIDs: set, allowWired: allowWired}
}

// Evaluate applies the authorization policy to a snapshot. First match wins:
// authorized wireless network, then authorized wired link, then a named
// rejection for a known but unauthorized network, then a generic denial.
func (g *Gate) Evaluate(snap Snapshot) Decision {
	ssid := strings.TrimSpace(snap.SSID)

	if ssid != "" {
		if _, ok := g.allowedSSIDs[ssid]; ok {
			return Decision{Allowed: true, Reason: fmt.Sprintf("wifi: %s", ssid)}
		}
	}
	if g.allowWired && snap.WiredUp {
		return Decision{Allowed: true, Reason: "wired"}
	}
	if ssid != "" {
		return Decision{Allowed: false, Reason: fmt.Sprintf("wifi not authorized: %s", ssid)}
	}
	return Decision{Allowed: false, Reason: "no authorized connection"}
}

// StaticProvider returns a fixed snapshot. Useful for tests and for
// deployments where the attachment is pinned by configuration.
type StaticProvider struct {
	SSID    string
	WiredUp bool
}

// Snapshot implements Provider.
func (p StaticProvider) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot{SSID: p.SSID, WiredUp: p.WiredUp}, nil
}
