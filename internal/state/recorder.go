package state

// Draft is a stroke that is still being drawn. It is never part of a
// Document until it is committed.
type Draft struct {
	stroke Stroke
}

// StartDraft opens a draft at p.
func StartDraft(id, color string, width float64, p Point) *Draft {
	return &Draft{stroke: Stroke{
		ID:     id,
		Color:  color,
		Width:  width,
		Points: []Point{ClampPoint(p)},
	}}
}

// Extend returns a new draft with p appended. Points are kept as delivered,
// including repeats.
func (d *Draft) Extend(p Point) *Draft {
	pts := make([]Point, len(d.stroke.Points), len(d.stroke.Points)+1)
	copy(pts, d.stroke.Points)
	next := d.stroke
	next.Points = append(pts, ClampPoint(p))
	return &Draft{stroke: next}
}

// Stroke returns a copy of the stroke recorded so far.
func (d *Draft) Stroke() Stroke {
	return d.stroke.clone()
}

// Len is the number of recorded points.
func (d *Draft) Len() int {
	if d == nil {
		return 0
	}
	return len(d.stroke.Points)
}
