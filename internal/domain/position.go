package domain

// Position is where a device sits on the floor plan. Pinned devices are left
// alone by the auto-layout in the UI.
type Position struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Pinned bool    `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}
