package overlay

// Position is the panel's top-left corner in page pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition is where a new panel appears.
var DefaultPosition = Position{X: 24, Y: 120}

type dragState struct {
	active bool
	offset Position
}

// DragStart begins a drag with the pointer at (x, y).
func (p *Panel) DragStart(x, y float64) {
	p.update(func(s *Snapshot) {
		p.drag.active = true
		p.drag.offset = Position{X: x - s.Position.X, Y: y - s.Position.Y}
	})
}

// DragMove moves the panel with the pointer; it is ignored outside a drag.
func (p *Panel) DragMove(x, y float64) {
	p.mu.Lock()
	active := p.drag.active
	p.mu.Unlock()
	if !active {
		return
	}

	p.update(func(s *Snapshot) {
		s.Position = Position{X: x - p.drag.offset.X, Y: y - p.drag.offset.Y}
	})
}

// DragEnd stops the drag, keeping the last position.
func (p *Panel) DragEnd() {
	p.update(func(s *Snapshot) {
		p.drag.active = false
	})
}
