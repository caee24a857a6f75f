package surface

// Selection is the single-selection model of the timeline surface:
// clicking a clip toggles it, selecting a clip deselects any other,
// clicking the track background clears it.
type Selection struct {
	id string
}

// Toggle flips the selection state of the given clip and reports
// whether it is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.id == id {
		s.id = ""
		return false
	}
	s.id = id
	return true
}

// Clear drops any selection.
func (s *Selection) Clear() {
	s.id = ""
}

// ID returns the selected clip ID, empty when nothing is selected.
func (s *Selection) ID() string {
	return s.id
}

// Selected reports whether the given clip is the selected one.
func (s *Selection) Selected(id string) bool {
	return id != "" && s.id == id
}

// Active reports whether any clip is selected.
func (s *Selection) Active() bool {
	return s.id != ""
}
