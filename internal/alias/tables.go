// Package alias holds the firewall alias and interface lookup tables and the
// resolver that turns raw rule values into human readable labels.
package alias

import (
	"strings"

	"frc2g/internal/model"
)

// Tables are populated once per run by a gateway and are read-only afterwards.
type Tables struct {
	interfaces map[string]string
	networks   map[string]string
	addresses  map[string]string
	ports      map[string]string
	details    map[string]model.AliasEntry
}

func NewTables() *Tables {
	return &Tables{
		interfaces: make(map[string]string),
		networks:   make(map[string]string),
		addresses:  make(map[string]string),
		ports:      make(map[string]string),
		details:    make(map[string]model.AliasEntry),
	}
}

// AddInterface maps an interface identifier (wan, lan, opt1...) to its
// description, or to the upper-cased identifier when the description is empty.
func (t *Tables) AddInterface(id, descr string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	label := strings.TrimSpace(descr)
	if label == "" {
		label = strings.ToUpper(id)
	}
	t.interfaces[strings.ToLower(id)] = label
	return label
}

// AddAlias records an alias. Aliases of unsupported kinds are dropped and
// reported with false.
func (t *Tables) AddAlias(e model.AliasEntry) bool {
	if e.Name == "" || !e.Kind.Supported() {
		return false
	}
	if e.Description == "" {
		e.Description = e.Name
	}
	key := strings.ToLower(e.Name)
	t.details[key] = e

	switch e.Kind {
	case model.AliasHost, model.AliasNetwork:
		t.networks[key] = e.Description
		t.addresses[key] = e.Description
	case model.AliasPort:
		if e.Content != "" {
			t.ports[key] = e.Content
		} else {
			t.ports[key] = e.Description
		}
	}
	return true
}

func (t *Tables) Interface(key string) (string, bool) {
	v, ok := t.interfaces[key]
	return v, ok
}

func (t *Tables) Detail(key string) (model.AliasEntry, bool) {
	e, ok := t.details[key]
	return e, ok
}

// InterfaceIDs returns the known interface identifiers in no particular order.
func (t *Tables) InterfaceIDs() []string {
	ids := make([]string, 0, len(t.interfaces))
	for id := range t.interfaces {
		ids = append(ids, id)
	}
	return ids
}

func (t *Tables) InterfaceCount() int { return len(t.interfaces) }
func (t *Tables) NetworkCount() int   { return len(t.networks) }
func (t *Tables) PortCount() int      { return len(t.ports) }
func (t *Tables) AliasCount() int     { return len(t.details) }
