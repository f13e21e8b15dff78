package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"daygrid/internal/layout"
)

const gutterWidth = 6 // "09:00 "

// box is a positioned event projected onto terminal cells. x is relative to
// its column, y is an absolute grid row (row 0 is midnight).
type box struct {
	ev   layout.Positioned
	x, y int
	w, h int
}

func (b box) contains(x, row int) bool {
	return x >= b.x && x < b.x+b.w && row >= b.y && row < b.y+b.h
}

// projectBoxes maps layout geometry onto a column width cells wide. Blocks
// keep a one-cell gap on their right when there is room for it. The result
// is in paint order: ascending ZIndex, ties in layout order.
func projectBoxes(positioned []layout.Positioned, width int) []box {
	out := make([]box, 0, len(positioned))
	for _, p := range positioned {
		left := int(math.Round(p.Left() * float64(width)))
		right := int(math.Round((p.Left() + p.Width) * float64(width)))
		w := right - left
		if w > 2 && right < width {
			w--
		}
		if w < 1 {
			w = 1
		}
		h := int(math.Round(p.Height))
		if h < 1 {
			h = 1
		}
		out = append(out, box{ev: p, x: left, y: int(math.Round(p.Top)), w: w, h: h})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ev.ZIndex < out[j].ev.ZIndex })
	return out
}

// boxAt returns the topmost box under (x, row).
func boxAt(boxes []box, x, row int) (box, bool) {
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].contains(x, row) {
			return boxes[i], true
		}
	}
	return box{}, false
}

// boxLines is the text shown inside a block: title, then time range.
func boxLines(b box, clock func(layout.Positioned) string) [][]rune {
	lines := make([][]rune, b.h)
	texts := []string{" " + b.ev.Title, " " + clock(b.ev)}
	for i := range lines {
		txt := ""
		if i < len(texts) {
			txt = texts[i]
		}
		r := []rune(txt)
		if len(r) > b.w {
			r = r[:b.w]
		}
		for len(r) < b.w {
			r = append(r, ' ')
		}
		lines[i] = r
	}
	return lines
}

type gridColumn struct {
	width int
	boxes []box
}

type gridPaint struct {
	rowsPerHour int
	scroll      int
	height      int
	// nowRow is the grid row of the now line, or -1.
	nowRow   int
	selected string
	dragging string
	colors   map[string]string
	theme    theme
	clock    func(layout.Positioned) string
}

// renderGrid draws the visible rows of one or more day columns next to an
// hour gutter. Columns are separated by a single rule.
func renderGrid(cols []gridColumn, p gridPaint) string {
	type painted struct {
		owner [][]int
		text  [][][]rune
	}
	cells := make([]painted, len(cols))
	for ci, col := range cols {
		owner := make([][]int, p.height)
		for r := range owner {
			owner[r] = make([]int, col.width)
			for c := range owner[r] {
				owner[r][c] = -1
			}
		}
		text := make([][][]rune, len(col.boxes))
		for bi, b := range col.boxes {
			text[bi] = boxLines(b, p.clock)
			for r := b.y; r < b.y+b.h; r++ {
				vr := r - p.scroll
				if vr < 0 || vr >= p.height {
					continue
				}
				for c := b.x; c < b.x+b.w && c < col.width; c++ {
					owner[vr][c] = bi
				}
			}
		}
		cells[ci] = painted{owner: owner, text: text}
	}

	var out strings.Builder
	for vr := 0; vr < p.height; vr++ {
		row := vr + p.scroll
		isNow := row == p.nowRow
		onHour := p.rowsPerHour > 0 && row%p.rowsPerHour == 0

		switch {
		case isNow:
			out.WriteString(p.theme.nowLine().Render(fitWidth("now", gutterWidth-1) + "▸"))
		case onHour && row < 24*p.rowsPerHour:
			out.WriteString(p.theme.muted().Render(fmt.Sprintf("%02d:00 ", row/p.rowsPerHour)))
		default:
			out.WriteString(strings.Repeat(" ", gutterWidth))
		}

		for ci, col := range cols {
			if ci > 0 {
				out.WriteString(p.theme.gridLine().Render("│"))
			}
			owner := cells[ci].owner[vr]
			for c := 0; c < col.width; {
				start, who := c, owner[c]
				for c < col.width && owner[c] == who {
					c++
				}
				if who < 0 {
					fill, st := " ", lipgloss.NewStyle()
					switch {
					case isNow:
						fill, st = "─", p.theme.nowLine()
					case onHour:
						fill, st = "┄", p.theme.gridLine()
					}
					out.WriteString(st.Render(strings.Repeat(fill, c-start)))
					continue
				}
				b := col.boxes[who]
				line := cells[ci].text[who][row-b.y]
				seg := string(line[start-b.x : c-b.x])
				st := p.theme.event(p.colors[b.ev.CalendarID], b.ev.ID == p.selected, b.ev.ID == p.dragging)
				out.WriteString(st.Render(seg))
			}
		}
		if vr < p.height-1 {
			out.WriteByte('\n')
		}
	}
	return out.String()
}
