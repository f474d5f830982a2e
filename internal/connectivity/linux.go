package connectivity

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes a platform command and returns its combined output.
// Injectable so the provider is unit-testable without a wireless stack.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// LinuxProvider reads wired link state from sysfs and the wireless network
// name from iwgetid.
type LinuxProvider struct {
	sysClassNet string
	run         CommandRunner
}

// LinuxOption configures a LinuxProvider.
type LinuxOption func(*LinuxProvider)

// WithSysClassNet overrides the sysfs network class directory.
func WithSysClassNet(dir string) LinuxOption {
	return func(p *LinuxProvider) {
		p.sysClassNet = dir
	}
}

// WithCommandRunner overrides the command runner used for SSID discovery.
func WithCommandRunner(run CommandRunner) LinuxOption {
	return func(p *LinuxProvider) {
		p.run = run
	}
}

// NewLinuxProvider builds a provider for Linux hosts.
func NewLinuxProvider(opts ...LinuxOption) *LinuxProvider {
	p := &LinuxProvider{
		sysClassNet: "/sys/class/net",
		run:         execRunner,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot implements Provider. An unknown SSID or unreadable sysfs never
// fails the call; the snapshot simply reports no attachment of that kind and
// the gate falls through to its generic denial.
func (p *LinuxProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	return Snapshot{
		SSID:    p.currentSSID(ctx),
		WiredUp: p.wiredLinkUp(),
	}, nil
}

func (p *LinuxProvider) currentSSID(ctx context.Context) string {
	out, err := p.run(ctx, "iwgetid", "--raw")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (p *LinuxProvider) wiredLinkUp() bool {
	entries, err := os.ReadDir(p.sysClassNet)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "lo" {
			continue
		}
		ifaceDir := filepath.Join(p.sysClassNet, name)
		// Wireless interfaces carry a "wireless" subdirectory; skip them so
		// an associated wifi link is not mistaken for an authorized cable.
		if _, err := os.Stat(filepath.Join(ifaceDir, "wireless")); err == nil {
			continue
		}
		state, err := os.ReadFile(filepath.Join(ifaceDir, "operstate"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(state)) == "up" {
			return true
		}
	}
	return false
}
