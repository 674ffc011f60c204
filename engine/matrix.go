package engine

import (
	"lhdiff/text"
)

// Cell caches the two similarity components for one (old, new) pair.
type Cell struct {
	Content float64
	Context float64
}

// Score combines the components with the given weights.
func (c Cell) Score(contentWeight, contextWeight float64) float64 {
	return c.Content*contentWeight + c.Context*contextWeight
}

// Matrix is a dense row-major |old| x |new| cache of similarities.
// Cells in an anchored row or column are left at zero.
type Matrix struct {
	rows  int
	cols  int
	cells []Cell
}

func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) At(i, j int) Cell {
	return m.cells[i*m.cols+j]
}

func buildMatrix(old, new []text.Line, anchoredOld map[int]int, anchoredNew map[int]struct{}) *Matrix {
	m := &Matrix{
		rows:  len(old),
		cols:  len(new),
		cells: make([]Cell, len(old)*len(new)),
	}

	for i, o := range old {
		if _, ok := anchoredOld[i]; ok {
			continue
		}
		row := m.cells[i*m.cols : (i+1)*m.cols]
		for j, n := range new {
			if _, ok := anchoredNew[j]; ok {
				continue
			}
			row[j] = Cell{
				Content: text.ContentSimilarity(o.Text, n.Text),
				Context: text.ContextSimilarity(o.Fingerprint, n.Fingerprint),
			}
		}
	}
	return m
}
