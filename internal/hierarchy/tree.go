// Package hierarchy holds the static location > hall > machine > device tree
// and the selection model that keeps a path through it valid.
package hierarchy

import (
	"errors"
	"fmt"
)

// Device is a metered consumer inside a machine.
type Device struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Machine groups devices.
type Machine struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Devices []Device `yaml:"devices" json:"devices"`
}

// Hall groups machines.
type Hall struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Machines []Machine `yaml:"machines" json:"machines"`
}

// Location is a plant.
type Location struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Halls []Hall `yaml:"halls" json:"halls"`
}

// Tree is the ordered list of locations. It is read-only once loaded.
type Tree []Location

// ErrInvalidTree is returned by Validate.
var ErrInvalidTree = errors.New("invalid hierarchy")

// Default returns the built-in plant layout.
func Default() Tree {
	return Tree{
		{
			ID: "coburg", Name: "Werk Coburg",
			Halls: []Hall{
				{
					ID: "h1", Name: "Halle 1 (Montage)",
					Machines: []Machine{
						{ID: "m1", Name: "Montagelinie A", Devices: []Device{
							{ID: "d1", Name: "Motor M1 (Förderband)"},
							{ID: "d2", Name: "Roboterarm R1"},
						}},
						{ID: "m2", Name: "Lackieranlage", Devices: []Device{
							{ID: "d3", Name: "Pumpe P1"},
							{ID: "d4", Name: "Lüftung V1"},
						}},
					},
				},
				{
					ID: "h2", Name: "Halle 2 (Logistik)",
					Machines: []Machine{
						{ID: "m3", Name: "Hochregallager", Devices: []Device{
							{ID: "d5", Name: "Liftmotor L1"},
						}},
					},
				},
			},
		},
		{
			ID: "berlin", Name: "Werk Berlin",
			Halls: []Hall{
				{ID: "h3", Name: "Halle B1"},
			},
		},
	}
}

// Validate checks that there is at least one location and that ids are
// non-empty and unique among siblings.
func (t Tree) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidTree)
	}
	locs := make(map[string]bool, len(t))
	for _, loc := range t {
		if err := checkID(locs, "location", "", loc.ID); err != nil {
			return err
		}
		halls := make(map[string]bool, len(loc.Halls))
		for _, h := range loc.Halls {
			if err := checkID(halls, "hall", loc.ID, h.ID); err != nil {
				return err
			}
			machines := make(map[string]bool, len(h.Machines))
			for _, m := range h.Machines {
				if err := checkID(machines, "machine", h.ID, m.ID); err != nil {
					return err
				}
				devices := make(map[string]bool, len(m.Devices))
				for _, d := range m.Devices {
					if err := checkID(devices, "device", m.ID, d.ID); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func checkID(seen map[string]bool, kind, parent, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s id under %q", ErrInvalidTree, kind, parent)
	}
	if seen[id] {
		return fmt.Errorf("%w: duplicate %s id %q under %q", ErrInvalidTree, kind, id, parent)
	}
	seen[id] = true
	return nil
}

// Location returns the location with the given id.
func (t Tree) Location(id string) (*Location, bool) {
	for i := range t {
		if t[i].ID == id {
			return &t[i], true
		}
	}
	return nil, false
}

// Hall returns the child hall with the given id.
func (l *Location) Hall(id string) (*Hall, bool) {
	if l == nil {
		return nil, false
	}
	for i := range l.Halls {
		if l.Halls[i].ID == id {
			return &l.Halls[i], true
		}
	}
	return nil, false
}

// Machine returns the child machine with the given id.
func (h *Hall) Machine(id string) (*Machine, bool) {
	if h == nil {
		return nil, false
	}
	for i := range h.Machines {
		if h.Machines[i].ID == id {
			return &h.Machines[i], true
		}
	}
	return nil, false
}

// Device returns the child device with the given id.
func (m *Machine) Device(id string) (*Device, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Devices {
		if m.Devices[i].ID == id {
			return &m.Devices[i], true
		}
	}
	return nil, false
}

func firstHall(l *Location) string {
	if l == nil || len(l.Halls) == 0 {
		return ""
	}
	return l.Halls[0].ID
}

func firstMachine(h *Hall) string {
	if h == nil || len(h.Machines) == 0 {
		return ""
	}
	return h.Machines[0].ID
}

func firstDevice(m *Machine) string {
	if m == nil || len(m.Devices) == 0 {
		return ""
	}
	return m.Devices[0].ID
}
