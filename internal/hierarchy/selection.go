package hierarchy

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Level identifies one of the four selection levels.
type Level string

const (
	LevelLocation Level = "location"
	LevelHall     Level = "hall"
	LevelMachine  Level = "machine"
	LevelDevice   Level = "device"
)

// ErrInvalidSelection is returned when an id is not a child of the current
// parent (or not a known location). The selection is left unchanged.
var ErrInvalidSelection = errors.New("invalid selection")

// Selection is a path through the tree. An empty MachineID or DeviceID
// means "All".
type Selection struct {
	LocationID string `json:"locationId"`
	HallID     string `json:"hallId"`
	MachineID  string `json:"machineId"`
	DeviceID   string `json:"deviceId"`
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelLocation, LevelHall, LevelMachine, LevelDevice:
		return l, nil
	}
	return "", fmt.Errorf("%w: unknown level %q", ErrInvalidSelection, s)
}

// Check reports whether sel is structurally valid for t.
func (t Tree) Check(sel Selection) error {
	loc, ok := t.Location(sel.LocationID)
	if !ok {
		return fmt.Errorf("%w: location %q not found", ErrInvalidSelection, sel.LocationID)
	}
	hall, ok := loc.Hall(sel.HallID)
	if !ok {
		if sel.HallID != "" || len(loc.Halls) > 0 {
			return fmt.Errorf("%w: hall %q not in location %q", ErrInvalidSelection, sel.HallID, sel.LocationID)
		}
	}
	machine, ok := hall.Machine(sel.MachineID)
	if !ok && sel.MachineID != "" {
		return fmt.Errorf("%w: machine %q not in hall %q", ErrInvalidSelection, sel.MachineID, sel.HallID)
	}
	if _, ok := machine.Device(sel.DeviceID); !ok && sel.DeviceID != "" {
		return fmt.Errorf("%w: device %q not in machine %q", ErrInvalidSelection, sel.DeviceID, sel.MachineID)
	}
	return nil
}

// Path holds display names for a selection. Empty names mean "All".
type Path struct {
	Location string `json:"location"`
	Hall     string `json:"hall"`
	Machine  string `json:"machine"`
	Device   string `json:"device"`
}

// Describe resolves the names along sel.
func (t Tree) Describe(sel Selection) Path {
	var p Path
	loc, _ := t.Location(sel.LocationID)
	if loc == nil {
		return p
	}
	p.Location = loc.Name
	hall, _ := loc.Hall(sel.HallID)
	if hall == nil {
		return p
	}
	p.Hall = hall.Name
	machine, _ := hall.Machine(sel.MachineID)
	if machine == nil {
		return p
	}
	p.Machine = machine.Name
	if d, ok := machine.Device(sel.DeviceID); ok {
		p.Device = d.Name
	}
	return p
}

// Model keeps a Selection valid against a Tree. Changing a level cascades
// downward, always reselecting the first child. Safe for concurrent use.
type Model struct {
	tree Tree

	mu  sync.RWMutex
	sel Selection
}

// NewModel creates a Model selecting the first location and cascading from it.
func NewModel(tree Tree) (*Model, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	m := &Model{tree: tree}
	loc := &tree[0]
	m.sel.LocationID = loc.ID
	m.cascadeHall(firstHall(loc))
	return m, nil
}

// Tree returns the underlying tree.
func (m *Model) Tree() Tree {
	return m.tree
}

// Selection returns the current selection.
func (m *Model) Selection() Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sel
}

// Set dispatches a selection-change event to the matching setter.
func (m *Model) Set(level Level, id string) (Selection, error) {
	var err error
	switch level {
	case LevelLocation:
		err = m.SetLocation(id)
	case LevelHall:
		err = m.SetHall(id)
	case LevelMachine:
		err = m.SetMachine(id)
	case LevelDevice:
		err = m.SetDevice(id)
	default:
		err = fmt.Errorf("%w: unknown level %q", ErrInvalidSelection, level)
	}
	return m.Selection(), err
}

// SetLocation selects a location. The current hall is kept if it belongs to
// the new location; otherwise the first hall (or none) is selected.
func (m *Model) SetLocation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc, ok := m.tree.Location(id)
	if !ok {
		return fmt.Errorf("set location %q: %w", id, ErrInvalidSelection)
	}
	m.sel.LocationID = id
	if _, ok := loc.Hall(m.sel.HallID); !ok {
		m.cascadeHall(firstHall(loc))
		return nil
	}
	m.revalidate()
	return nil
}

// SetHall selects a hall of the current location.
func (m *Model) SetHall(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc, _ := m.tree.Location(m.sel.LocationID)
	if _, ok := loc.Hall(id); !ok {
		return fmt.Errorf("set hall %q in location %q: %w", id, m.sel.LocationID, ErrInvalidSelection)
	}
	if id != m.sel.HallID {
		m.cascadeHall(id)
	}
	return nil
}

// SetMachine selects a machine of the current hall, or "" for all machines.
func (m *Model) SetMachine(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hall := m.currentHall()
	if id != "" {
		if _, ok := hall.Machine(id); !ok {
			return fmt.Errorf("set machine %q in hall %q: %w", id, m.sel.HallID, ErrInvalidSelection)
		}
	}
	if id != m.sel.MachineID {
		m.cascadeMachine(id)
	}
	return nil
}

// SetDevice selects a device of the current machine, or "" for all devices.
func (m *Model) SetDevice(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		machine, _ := m.currentHall().Machine(m.sel.MachineID)
		if _, ok := machine.Device(id); !ok {
			return fmt.Errorf("set device %q in machine %q: %w", id, m.sel.MachineID, ErrInvalidSelection)
		}
	}
	m.sel.DeviceID = id
	return nil
}

func (m *Model) currentHall() *Hall {
	loc, _ := m.tree.Location(m.sel.LocationID)
	hall, _ := loc.Hall(m.sel.HallID)
	return hall
}

// cascadeHall sets the hall and reselects the first machine and device
// below it. Caller must hold mu.
func (m *Model) cascadeHall(id string) {
	m.sel.HallID = id
	m.cascadeMachine(firstMachine(m.currentHall()))
}

// cascadeMachine sets the machine and reselects its first device.
// Caller must hold mu.
func (m *Model) cascadeMachine(id string) {
	m.sel.MachineID = id
	machine, _ := m.currentHall().Machine(id)
	m.sel.DeviceID = firstDevice(machine)
}

// revalidate repairs the levels below a kept hall id. Sibling ids are only
// unique per parent, so a hall id shared by two locations can name a hall
// with different machines. Caller must hold mu.
func (m *Model) revalidate() {
	hall := m.currentHall()
	if m.sel.MachineID != "" {
		if _, ok := hall.Machine(m.sel.MachineID); !ok {
			m.cascadeMachine(firstMachine(hall))
			return
		}
	}
	machine, _ := hall.Machine(m.sel.MachineID)
	if m.sel.DeviceID != "" {
		if _, ok := machine.Device(m.sel.DeviceID); !ok {
			m.sel.DeviceID = firstDevice(machine)
		}
	}
}
