package net

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// OutgoingIP finds the address other devices on the LAN should use to reach
// this host. It prefers the interface that routes outward, then the first
// non-loopback IPv4 address, then loopback.
func OutgoingIP() net.IP {
	// no packets are sent for a UDP dial
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if a, ok := conn.LocalAddr().(*net.UDPAddr); ok && a.IP.To4() != nil {
			return a.IP.To4()
		}
	}
	return firstIPv4()
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	log.Warn("[MDNS] no LAN address found, falling back to loopback")
	return net.IPv4(127, 0, 0, 1)
}
