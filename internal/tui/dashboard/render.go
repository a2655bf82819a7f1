// Package dashboard renders monitor entries as a static table or an interactive
// bubbletea view.
package dashboard

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/leefowlercu/dron/internal/monitor"
	"github.com/leefowlercu/dron/internal/tui/styles"
)

const statusColumn = 1

// Headers returns the column titles.
func Headers(withCommand bool) []string {
	h := []string{"UNIT", "STATUS", "LEFT", "NEXT", "SCHEDULE"}
	if withCommand {
		h = append(h, "COMMAND")
	}
	return h
}

// Row returns the display cells of an entry.
func Row(e monitor.Entry, withCommand bool) []string {
	r := []string{e.Unit, e.Status, e.Left, e.Next, e.Schedule}
	if withCommand {
		r = append(r, e.Command)
	}
	return r
}

// RenderTable renders entries as a borderless table with colored statuses.
func RenderTable(entries []monitor.Entry, withCommand bool) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row(e, withCommand))
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(Headers(withCommand)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeader
			case col == statusColumn:
				if entries[row].StatusOK {
					return styles.TableCell.Foreground(styles.Success)
				}
				return styles.TableCell.Foreground(styles.Error)
			case entries[row].Running() && (col == 2 || col == 3):
				return styles.TableCell.Foreground(styles.Warning)
			default:
				return styles.TableCell
			}
		})

	return t.Render()
}
