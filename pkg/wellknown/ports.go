package wellknown

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"strings"

	_ "embed"
)

//go:embed well_known_ports.csv
var wellKnownPortsData string

type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

type ServiceEntry struct {
	Protocol Protocol
	Port     int
}

var (
	serviceRegistry map[string][]ServiceEntry
	portRegistry    map[ServiceEntry]string
)

func init() {
	serviceRegistry = make(map[string][]ServiceEntry)
	portRegistry = make(map[ServiceEntry]string)
	reader := csv.NewReader(bytes.NewBufferString(wellKnownPortsData))
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Fatalf("Failed to read header from embedded well_known_ports.csv: %v", err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to parse embedded well_known_ports.csv: %v", err)
		}
		if len(record) < 3 {
			continue
		}

		port, err := strconv.Atoi(record[0])
		if err != nil {
			continue // Skip if port is not a valid number
		}

		register(strings.TrimSpace(record[1]), ServiceEntry{Protocol: TCP, Port: port})
		register(strings.TrimSpace(record[2]), ServiceEntry{Protocol: UDP, Port: port})
	}
}

func register(name string, entry ServiceEntry) {
	if name == "" || name == "N/A" {
		return
	}
	key := strings.ToUpper(name)
	serviceRegistry[key] = append(serviceRegistry[key], entry)
	portRegistry[entry] = name
	// Add common alias for DNS
	if name == "domain" {
		serviceRegistry["DNS"] = append(serviceRegistry["DNS"], entry)
	}
}

// GetService returns the port and protocol for a well-known service name.
func GetService(name string) ([]ServiceEntry, bool) {
	entry, ok := serviceRegistry[strings.ToUpper(name)]
	return entry, ok
}

// ServiceName returns the well-known service name for a single port. The
// protocol may be "tcp", "udp", "tcp/udp" or anything else, in which case
// TCP is tried before UDP.
func ServiceName(port string, protocol string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return "", false
	}
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "tcp":
		return lookup(ServiceEntry{Protocol: TCP, Port: n})
	case "udp":
		return lookup(ServiceEntry{Protocol: UDP, Port: n})
	}
	if name, ok := lookup(ServiceEntry{Protocol: TCP, Port: n}); ok {
		return name, true
	}
	return lookup(ServiceEntry{Protocol: UDP, Port: n})
}

func lookup(e ServiceEntry) (string, bool) {
	name, ok := portRegistry[e]
	return name, ok
}

// ServicePorts returns the ports of a named service, joined with ", ". For
// protocols other than "tcp" and "udp" both are accepted.
func ServicePorts(name, protocol string) (string, bool) {
	entries, ok := GetService(strings.TrimSpace(name))
	if !ok {
		return "", false
	}
	var want Protocol
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "tcp":
		want = TCP
	case "udp":
		want = UDP
	}
	seen := make(map[int]bool)
	var ports []string
	for _, e := range entries {
		if (want != "" && e.Protocol != want) || seen[e.Port] {
			continue
		}
		seen[e.Port] = true
		ports = append(ports, strconv.Itoa(e.Port))
	}
	if len(ports) == 0 {
		return "", false
	}
	return strings.Join(ports, ", "), true
}

// Annotate appends the service name to a single-port label, "443" -> "443 (https)",
// or the port to a service name, "https" -> "https (443)".
// Ranges, lists and aliases are returned unchanged.
func Annotate(port, protocol string) string {
	if name, ok := ServiceName(port, protocol); ok {
		return port + " (" + name + ")"
	}
	if ports, ok := ServicePorts(port, protocol); ok {
		return port + " (" + ports + ")"
	}
	return port
}
