// Package appstate holds the small amount of mutable process state shared
// between request handlers.
package appstate

import "sync"

// State is passed explicitly to whoever needs it; all access goes through
// its methods.
type State struct {
	mu             sync.Mutex
	hotkey         string
	lastWindow     uintptr
	haveLastWindow bool
}

// New returns a State with the given active hotkey.
func New(hotkey string) *State {
	return &State{hotkey: hotkey}
}

// Hotkey returns the active launcher shortcut.
func (s *State) Hotkey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hotkey
}

// SwapHotkey sets the active shortcut and returns the previous one.
func (s *State) SwapHotkey(hotkey string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.hotkey
	s.hotkey = hotkey
	return prev
}

// LastWindow returns the last captured external window handle.
func (s *State) LastWindow() (uintptr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWindow, s.haveLastWindow
}

// SetLastWindow records h as the last external window.
func (s *State) SetLastWindow(h uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWindow = h
	s.haveLastWindow = true
}

// ClearLastWindow forgets the captured window.
func (s *State) ClearLastWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWindow = 0
	s.haveLastWindow = false
}
