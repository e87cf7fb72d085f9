// Package systems provides the spatial index and the per-agent simulation
// rules: sensing, kinematics and genetic operators.
package systems

import (
	"github.com/mlange-42/ark/ecs"
)

// Neighbor holds a nearby entity with precomputed spatial data.
// This avoids recomputing toroidal delta and distance in sensors.
type Neighbor struct {
	E      ecs.Entity
	DX, DY float32 // Toroidal delta from query origin
	DistSq float32 // Squared distance (avoid sqrt in hot path)
}

type gridEntry struct {
	e    ecs.Entity
	x, y float32
}

type cellSlot struct {
	cell int
	slot int
}

// SpatialGrid is a uniform-cell index over the toroidal world. Each bucket
// holds references to the entities inside it and a reverse index maps every
// entity to its bucket, so removal and relocation are O(1).
//
// Queries only read and may run concurrently. Insert, Remove and Move must
// not overlap with queries.
type SpatialGrid struct {
	cellW, cellH float32
	cols, rows   int
	width        float32
	height       float32
	cells        [][]gridEntry
	index        map[ecs.Entity]cellSlot
}

// NewSpatialGrid creates a spatial grid covering the given world size. Cells
// are at least cellSize wide and tile the world exactly.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := max(1, int(width/cellSize))
	rows := max(1, int(height/cellSize))

	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellW:  width / float32(cols),
		cellH:  height / float32(rows),
		cols:   cols,
		rows:   rows,
		width:  width,
		height: height,
		cells:  cells,
		index:  make(map[ecs.Entity]cellSlot),
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	clear(g.index)
}

// Len returns the number of registered entities.
func (g *SpatialGrid) Len() int {
	return len(g.index)
}

// Contains reports whether e is registered.
func (g *SpatialGrid) Contains(e ecs.Entity) bool {
	_, ok := g.index[e]
	return ok
}

// Insert adds an entity to the grid at the given position. Inserting a
// registered entity relocates it.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	if _, ok := g.index[e]; ok {
		g.Move(e, x, y)
		return
	}
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], gridEntry{e: e, x: x, y: y})
	g.index[e] = cellSlot{cell: idx, slot: len(g.cells[idx]) - 1}
}

// Remove drops an entity from the grid. Unknown entities are ignored.
func (g *SpatialGrid) Remove(e ecs.Entity) {
	loc, ok := g.index[e]
	if !ok {
		return
	}
	g.removeAt(loc)
	delete(g.index, e)
}

func (g *SpatialGrid) removeAt(loc cellSlot) {
	bucket := g.cells[loc.cell]
	last := len(bucket) - 1
	if loc.slot != last {
		moved := bucket[last]
		bucket[loc.slot] = moved
		g.index[moved.e] = cellSlot{cell: loc.cell, slot: loc.slot}
	}
	g.cells[loc.cell] = bucket[:last]
}

// Move updates an entity's position, changing bucket only when it crossed a
// cell boundary. Unknown entities are inserted.
func (g *SpatialGrid) Move(e ecs.Entity, x, y float32) {
	loc, ok := g.index[e]
	if !ok {
		g.Insert(e, x, y)
		return
	}
	idx := g.cellIndex(x, y)
	if idx == loc.cell {
		entry := &g.cells[idx][loc.slot]
		entry.x, entry.y = x, y
		return
	}
	g.removeAt(loc)
	g.cells[idx] = append(g.cells[idx], gridEntry{e: e, x: x, y: y})
	g.index[e] = cellSlot{cell: idx, slot: len(g.cells[idx]) - 1}
}

// QueryRadiusInto finds entities within radius (toroidal metric) and appends
// them to dst. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32, exclude ecs.Entity) []Neighbor {
	centerCol, centerRow := g.cellCoords(x, y)
	radiusSq := radius * radius

	colRadius := int(radius/g.cellW) + 1
	rowRadius := int(radius/g.cellH) + 1

	// Visit each column and row at most once when the radius spans the world
	colStart, colCount := centerCol-colRadius, 2*colRadius+1
	if colCount >= g.cols {
		colStart, colCount = 0, g.cols
	}
	rowStart, rowCount := centerRow-rowRadius, 2*rowRadius+1
	if rowCount >= g.rows {
		rowStart, rowCount = 0, g.rows
	}

	for dc := 0; dc < colCount; dc++ {
		col := mod(colStart+dc, g.cols)
		for dr := 0; dr < rowCount; dr++ {
			row := mod(rowStart+dr, g.rows)
			for _, entry := range g.cells[row*g.cols+col] {
				if entry.e == exclude {
					continue
				}
				dx, dy := ToroidalDelta(x, y, entry.x, entry.y, g.width, g.height)
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: entry.e, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}

	return dst
}

// GridStats summarizes bucket occupancy.
type GridStats struct {
	TotalCells       int
	OccupiedCells    int
	AvgPerOccupied   float32
	MaxAgentsInCell  int
	RegisteredAgents int
}

// Stats reports bucket occupancy for diagnostics.
func (g *SpatialGrid) Stats() GridStats {
	s := GridStats{TotalCells: len(g.cells), RegisteredAgents: len(g.index)}
	for _, bucket := range g.cells {
		if n := len(bucket); n > 0 {
			s.OccupiedCells++
			s.MaxAgentsInCell = max(s.MaxAgentsInCell, n)
		}
	}
	if s.OccupiedCells > 0 {
		s.AvgPerOccupied = float32(s.RegisteredAgents) / float32(s.OccupiedCells)
	}
	return s
}

// cellCoords returns the column and row for a world position.
func (g *SpatialGrid) cellCoords(x, y float32) (col, row int) {
	col = int(x / g.cellW)
	row = int(y / g.cellH)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
