package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"tims/internal/util"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printTable renders rows under headers through the shared printer.
func printTable(p *util.SafePrinter, headers []string, rows [][]string) {
	if len(rows) == 0 {
		p.Println("Nothing found")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	p.PrintBlock(t.String())
}

func formatDate(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}

func money(v fmt.Stringer) string { return "$" + v.String() }
