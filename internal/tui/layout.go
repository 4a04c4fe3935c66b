package tui

// Layout proportions
const (
	SidebarPercent  = 30
	MinSidebarWidth = 24
	MinMainWidth    = 30

	// Header and footer lines
	ChromeHeight = 3
)

// paneLayout holds calculated pane widths for the View
type paneLayout struct {
	sidebarWidth  int
	mainWidth     int
	contentHeight int
}

// calculateLayout splits the window between the sidebar and the main pane
func calculateLayout(width, height int) paneLayout {
	sidebar := max(width*SidebarPercent/100, MinSidebarWidth)
	if width-sidebar < MinMainWidth {
		sidebar = max(width-MinMainWidth, 0)
	}
	return paneLayout{
		sidebarWidth:  sidebar,
		mainWidth:     max(width-sidebar, 0),
		contentHeight: max(height-ChromeHeight, 1),
	}
}
