package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	light, dark        lipgloss.Style
	cursor, selected   lipgloss.Style
	target, fusion     lipgloss.Style
	whitePiece         lipgloss.Style
	blackPiece         lipgloss.Style
	title, status, dim lipgloss.Style
	info               lipgloss.Style
}

// newStyles builds styles against r so colors match the SSH client's
// terminal rather than the server's.
func newStyles(r *lipgloss.Renderer) styles {
	cell := r.NewStyle().Padding(0, 1)
	return styles{
		light:      cell.Background(lipgloss.Color("180")),
		dark:       cell.Background(lipgloss.Color("94")),
		cursor:     cell.Background(lipgloss.Color("160")),
		selected:   cell.Background(lipgloss.Color("178")),
		target:     cell.Background(lipgloss.Color("34")),
		fusion:     cell.Background(lipgloss.Color("99")),
		whitePiece: r.NewStyle().Foreground(lipgloss.Color("231")).Bold(true),
		blackPiece: r.NewStyle().Foreground(lipgloss.Color("16")).Bold(true),
		title:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		status:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		dim:        r.NewStyle().Foreground(lipgloss.Color("244")),
		info: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(34),
	}
}
