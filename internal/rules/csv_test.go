package rules

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"frc2g/internal/model"
)

var sampleRules = []model.CanonicalRule{
	{Source: "LAN", Gateway: "GW1/wan", Action: "PASS", Protocol: "TCP", Port: "443", Destination: "WEB", Comment: "Any", Disabled: "False", Floating: "False"},
	{Source: "LAN", Gateway: "GW1/wan", Action: "PASS", Protocol: "TCP", Port: "8443", Destination: "WEB", Comment: "alt, \"quoted\"", Disabled: "False", Floating: "False"},
	{Source: "Any", Gateway: "GW1/Floating-rules", Action: "BLOCK", Protocol: "Any", Port: "Any", Destination: "Any", Comment: "Any", Disabled: "True", Floating: "True"},
	{Source: "DMZ", Gateway: "GW1/lan", Action: "REJECT", Protocol: "UDP", Port: "53", Destination: "DNS", Comment: " leading space", Disabled: "False", Floating: "False"},
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_fw.csv")
	if err := WriteFile(path, sampleRules); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, sampleRules) {
		t.Fatalf("expected %+v, got %+v", sampleRules, got)
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "SOURCE,GATEWAY,ACTION,PROTOCOL,PORT,DESTINATION,COMMENT,DISABLED,FLOATING\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestReadLocatesColumnsByHeader(t *testing.T) {
	input := "floating,disabled,comment,destination,port,protocol,action,gateway,source\n" +
		"False,False,c,d,22,TCP,PASS,gw/lan,s\n"
	got, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := model.CanonicalRule{Source: "s", Gateway: "gw/lan", Action: "PASS", Protocol: "TCP", Port: "22", Destination: "d", Comment: "c", Disabled: "False", Floating: "False"}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("SOURCE,GATEWAY\nx,y\n"))
	if err == nil || !strings.Contains(err.Error(), "ACTION") {
		t.Fatalf("expected missing ACTION column error, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(sampleRules)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, _ := Fingerprint(append([]model.CanonicalRule(nil), sampleRules...))
	if a != b {
		t.Fatalf("expected identical fingerprints, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a hex sha256, got %q", a)
	}

	changed := append([]model.CanonicalRule(nil), sampleRules...)
	changed[0].Port = "444"
	c, _ := Fingerprint(changed)
	if c == a {
		t.Fatalf("expected fingerprint to change with content")
	}
}

func TestInterfaces(t *testing.T) {
	got := Interfaces(sampleRules)
	want := []string{"Floating-rules", "lan", "wan"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if n := len(ForInterface(sampleRules, "wan")); n != 2 {
		t.Fatalf("expected 2 wan rules, got %d", n)
	}
}
