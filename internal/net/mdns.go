package net

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	log "github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service annotation servers register under.
const ServiceType = "_annotator._tcp"

// Server is an annotation server found on the LAN.
type Server struct {
	Instance string
	Addr     string // host:port
	Info     []string
}

// URL is the base URL a RemoteStore should use.
func (s Server) URL() string { return "http://" + s.Addr }

// Advertise registers an annotation server listening on port. Call Shutdown
// on the result to withdraw it.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"annotator"}
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, []net.IP{OutgoingIP()}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.WithField("port", port).Infof("[MDNS] advertising %s as %s", ServiceType, host)
	return server, nil
}

// Browse queries the LAN for annotation servers for up to timeout and
// returns them in the order they answered, without duplicates.
func Browse(timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan []Server)
	go func() {
		var found []Server
		seen := make(map[string]bool)
		for e := range entries {
			s, ok := fromEntry(e)
			if !ok || seen[s.Addr] {
				continue
			}
			seen[s.Addr] = true
			log.Debugf("[MDNS] found %s at %s", s.Instance, s.Addr)
			found = append(found, s)
		}
		done <- found
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	found := <-done
	if err != nil {
		return found, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

func fromEntry(e *mdns.ServiceEntry) (Server, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Server{}, false
	}
	return Server{
		Instance: e.Name,
		Addr:     net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)),
		Info:     e.InfoFields,
	}, true
}
