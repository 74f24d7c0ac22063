// Package popup holds the announcement shown to clients at start-up.
package popup

import "sync"

// Popup is the client-facing announcement.
type Popup struct {
	Heading   string `json:"heading" validate:"required,max=120"`
	Paragraph string `json:"paragraph" validate:"max=2000"`
	Active    bool   `json:"active"`
}

// Default is served until an administrator replaces it.
var Default = Popup{
	Heading:   "Welcome",
	Paragraph: "Thanks for downloading the app!",
	Active:    false,
}

// Manager guards a single Popup. Reads never block each other.
type Manager struct {
	mu    sync.RWMutex
	popup Popup
}

func NewManager(initial Popup) *Manager {
	return &Manager{popup: initial}
}

// Get returns a copy of the current popup.
func (m *Manager) Get() Popup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.popup
}

// Update replaces the popup and returns the stored value.
func (m *Manager) Update(p Popup) Popup {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popup = p
	return p
}
