package picker

import (
	"errors"
	"sync"
)

// Mode is the state of a Modal.
type Mode int

const (
	Closed Mode = iota
	OpenList
	OpenCreate
)

func (m Mode) String() string {
	switch m {
	case Closed:
		return "closed"
	case OpenList:
		return "list"
	case OpenCreate:
		return "create"
	default:
		return "unknown"
	}
}

var (
	// ErrPickerOpen is returned when a picker is opened while another one
	// is still open on the same form.
	ErrPickerOpen = errors.New("a picker is already open")
	// ErrPickerClosed is returned for actions that need an open picker.
	ErrPickerClosed = errors.New("no picker is open")
)

// Launch describes what a field asked the modal to show.
type Launch struct {
	// Field is the form field that receives the selection.
	Field string
	List  *List
	// OnSelect receives the selected or newly created identity.
	OnSelect func(id int64)
}

// Modal holds at most one open picker per form.
type Modal struct {
	mu     sync.Mutex
	mode   Mode
	launch Launch
}

// Open shows l's list. It fails while another picker is open.
func (m *Modal) Open(l Launch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Closed {
		return ErrPickerOpen
	}
	m.mode = OpenList
	m.launch = l
	return nil
}

// ToggleCreate switches between the list and the embedded creation form.
func (m *Modal) ToggleCreate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.mode {
	case OpenList:
		m.mode = OpenCreate
	case OpenCreate:
		m.mode = OpenList
	default:
		return ErrPickerClosed
	}
	return nil
}

// Select closes the modal and hands id to the launching field.
func (m *Modal) Select(id int64) error {
	m.mu.Lock()
	if m.mode == Closed {
		m.mu.Unlock()
		return ErrPickerClosed
	}
	onSelect := m.launch.OnSelect
	m.mode = Closed
	m.launch = Launch{}
	m.mu.Unlock()

	if onSelect != nil {
		onSelect(id)
	}
	return nil
}

// Close dismisses the modal without a selection.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = Closed
	m.launch = Launch{}
}

// State returns the current mode and launch.
func (m *Modal) State() (Mode, Launch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, m.launch
}
