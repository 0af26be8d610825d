package graph

// LayoutOptions controls node spacing. X grows with level, Y with the
// ordinal position inside a level.
type LayoutOptions struct {
	ColumnWidth float64 `json:"column_width"`
	RowHeight   float64 `json:"row_height"`
	OriginX     float64 `json:"origin_x"`
	OriginY     float64 `json:"origin_y"`
}

// DefaultLayoutOptions returns the spacing used by the renderer snapshots.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		ColumnWidth: 250,
		RowHeight:   100,
	}
}

// Point is a 2-D anchor for one task.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project maps each task to an anchor. Level l is placed at
// x = OriginX + l*ColumnWidth; the i-th of n tasks in that level is placed at
// y = OriginY + (i - (n-1)/2)*RowHeight, centring the level on OriginY.
func Project(layers [][]string, opts LayoutOptions) map[string]Point {
	points := make(map[string]Point)
	for level, ids := range layers {
		x := opts.OriginX + float64(level)*opts.ColumnWidth
		mid := float64(len(ids)-1) / 2
		for i, id := range ids {
			points[id] = Point{
				X: x,
				Y: opts.OriginY + (float64(i)-mid)*opts.RowHeight,
			}
		}
	}
	return points
}
