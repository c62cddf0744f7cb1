// Package netinfo answers questions about the local network: address
// classification, the default gateway, and interface subnets.
package netinfo

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jackpal/gateway"
)

// IsPrivate reports whether addr belongs to the client's own network:
// RFC1918 ranges, loopback, or link-local. The first traced hop that is
// not private is the "last mile" host.
func IsPrivate(addr string) (bool, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false, fmt.Errorf("invalid address %q: %v", addr, err)
	}

	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast(), nil
}

// DefaultGateway returns the default gateway address from the OS
// routing table.
func DefaultGateway() (string, error) {
	ip, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("default gateway not found: %v", err)
	}
	return ip.String(), nil
}

// InterfaceNetwork returns the IPv4 subnet of the named interface in
// CIDR form, suitable as an nmap scan target.
func InterfaceNetwork(name string) (string, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("interface %s: %v", name, err)
	}

	addrs, err := ifc.Addrs()
	if err != nil {
		return "", fmt.Errorf("interface %s addresses: %v", name, err)
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		return fmt.Sprintf("%s/%d", ip4.Mask(ipnet.Mask), ones), nil
	}

	return "", fmt.Errorf("interface %s: no IPv4 address", name)
}
