package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

// newTable returns a bordered table for CLI listings.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}
