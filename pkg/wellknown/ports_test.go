package wellknown

import "testing"

func TestGetServiceReturnsDNSAliases(t *testing.T) {
	entries, ok := GetService("dns")
	if !ok {
		t.Fatalf("expected dns to be present in well-known service registry")
	}
	if !containsPort(entries, 53, TCP) && !containsPort(entries, 53, UDP) {
		t.Fatalf("expected DNS to include port 53 over tcp or udp, got %#v", entries)
	}
}

func TestGetServiceReturnsFalseForUnknown(t *testing.T) {
	_, ok := GetService("definitely-not-a-service")
	if ok {
		t.Fatalf("expected unknown service to return ok=false")
	}
}

func TestServiceNameHonorsProtocol(t *testing.T) {
	tests := []struct {
		port, proto, want string
		ok                bool
	}{
		{"443", "tcp", "https", true},
		{"123", "udp", "ntp", true},
		{"123", "tcp", "", false},
		{"123", "Any", "ntp", true},
		{"53", "tcp/udp", "domain", true},
		{"80-90", "tcp", "", false},
		{"web_ports", "tcp", "", false},
	}
	for _, tt := range tests {
		got, ok := ServiceName(tt.port, tt.proto)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ServiceName(%s, %s): expected (%q, %v), got (%q, %v)", tt.port, tt.proto, tt.want, tt.ok, got, ok)
		}
	}
}

func TestAnnotate(t *testing.T) {
	if got := Annotate("22", "tcp"); got != "22 (ssh)" {
		t.Fatalf("expected 22 (ssh), got %s", got)
	}
	if got := Annotate("Any", "Any"); got != "Any" {
		t.Fatalf("expected Any unchanged, got %s", got)
	}
	if got := Annotate("https", "tcp"); got != "https (443)" {
		t.Fatalf("expected https (443), got %s", got)
	}
	if got := Annotate("DNS", "udp"); got != "DNS (53)" {
		t.Fatalf("expected DNS (53), got %s", got)
	}
	// http is only registered over TCP.
	if got := Annotate("http", "udp"); got != "http" {
		t.Fatalf("expected http unchanged over udp, got %s", got)
	}
}

func TestServicePorts(t *testing.T) {
	tests := []struct {
		name, proto, want string
		ok                bool
	}{
		{"https", "tcp", "443", true},
		{"domain", "Any", "53", true},
		{"dns", "tcp/udp", "53", true},
		{"ntp", "tcp", "", false},
		{"web_ports", "tcp", "", false},
	}
	for _, tt := range tests {
		got, ok := ServicePorts(tt.name, tt.proto)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ServicePorts(%s, %s): expected (%q, %v), got (%q, %v)", tt.name, tt.proto, tt.want, tt.ok, got, ok)
		}
	}
}

func containsPort(entries []ServiceEntry, port int, protocol Protocol) bool {
	for _, entry := range entries {
		if entry.Port == port && entry.Protocol == protocol {
			return true
		}
	}
	return false
}
