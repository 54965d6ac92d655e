// Package provision brings a TUN interface up and down using the
// external "ip" command, following the teacher library's own
// string-shellout TUN configuration (internal/tap.go), but behind a
// small interface so the core can be exercised against a stub in tests
// instead of touching real network state.
package provision

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"

	"github.com/teavpn2/server/internal/logging"
)

// candidatePaths is searched, in order, for the "ip" binary so the
// provisioner does not depend on $PATH in a stripped-down container.
var candidatePaths = []string{"/sbin/ip", "/usr/sbin/ip", "/bin/ip", "/usr/bin/ip"}

// IfaceInfo describes the interface state to apply.
type IfaceInfo struct {
	Dev       string
	MTU       uint16
	IPv4      string
	Netmask   string
	PublicIP  string // non-empty, together with GatewayIP, enables split-default routing
	GatewayIP string
}

// Provisioner brings an interface up/down. Calls are not idempotent:
// CommandProvisioner.BringUp returns an error when "ip addr add" finds
// the address already assigned.
type Provisioner interface {
	BringUp(info IfaceInfo) error
	BringDown(info IfaceInfo) error
}

// CommandProvisioner shells out to "ip" exactly as the source project
// does, one external process per configuration step.
type CommandProvisioner struct {
	ipPath string
	log    logging.Logger
}

// New locates the "ip" binary and returns a CommandProvisioner, or an
// error if none of candidatePaths exists.
func New(log logging.Logger) (*CommandProvisioner, error) {
	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return &CommandProvisioner{ipPath: p, log: log}, nil
		}
	}
	return nil, fmt.Errorf("provision: no ip binary found in %v", candidatePaths)
}

func (c *CommandProvisioner) run(args ...string) error {
	cmd := exec.Command(c.ipPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("provision: %s %v: %w: %s", c.ipPath, args, err, out)
	}
	return nil
}

// BringUp sets the link up with the given MTU, assigns the address (with
// its broadcast address when IPv4 and Netmask parse as dotted quads), and
// when info.PublicIP/GatewayIP are set, installs the split-default
// routes (0.0.0.0/1 and 128.0.0.0/1) through the tunnel gateway.
func (c *CommandProvisioner) BringUp(info IfaceInfo) error {
	c.log.Info("bringing up interface", slog.String("dev", info.Dev))
	if err := c.run("link", "set", "dev", info.Dev, "up", "mtu", fmt.Sprint(info.MTU)); err != nil {
		return err
	}
	addrArgs := []string{"addr", "add", info.IPv4 + "/" + netmaskToCIDR(info.Netmask), "dev", info.Dev}
	if ip, mask := net.ParseIP(info.IPv4).To4(), net.ParseIP(info.Netmask).To4(); ip != nil && mask != nil {
		bcast := make(net.IP, net.IPv4len)
		for i := range bcast {
			bcast[i] = ip[i] | ^mask[i]
		}
		addrArgs = append(addrArgs, "broadcast", bcast.String())
	}
	if err := c.run(addrArgs...); err != nil {
		return err
	}
	if info.PublicIP != "" && info.GatewayIP != "" {
		if err := c.run("route", "add", "0.0.0.0/1", "via", info.GatewayIP, "dev", info.Dev); err != nil {
			return err
		}
		if err := c.run("route", "add", "128.0.0.0/1", "via", info.GatewayIP, "dev", info.Dev); err != nil {
			return err
		}
	}
	return nil
}

// BringDown removes the split-default routes (when configured, ignoring
// failures) and sets the link down; it does not delete the address.
func (c *CommandProvisioner) BringDown(info IfaceInfo) error {
	c.log.Info("bringing down interface", slog.String("dev", info.Dev))
	if info.PublicIP != "" && info.GatewayIP != "" {
		c.run("route", "del", "0.0.0.0/1", "dev", info.Dev)
		c.run("route", "del", "128.0.0.0/1", "dev", info.Dev)
	}
	return c.run("link", "set", "dev", info.Dev, "down")
}

// netmaskToCIDR converts a dotted-quad netmask to a CIDR prefix length.
func netmaskToCIDR(mask string) string {
	var a, b, d, e int
	n, err := fmt.Sscanf(mask, "%d.%d.%d.%d", &a, &b, &d, &e)
	if err != nil || n != 4 {
		return "32"
	}
	bits := 0
	for _, octet := range []int{a, b, d, e} {
		for o := octet; o > 0; o >>= 1 {
			bits += o & 1
		}
	}
	return fmt.Sprint(bits)
}
