// Package branding centralizes application identity and the color palette
// shared by the CLI reports and the TUI dashboard.
package branding

// Application identity constants.
const (
	AppName    = "MCP Workflow"
	CLIName    = "MCP Workflow Manager"
	BinaryName = "mcpwf"
)

// Colors in hex format for Lipgloss true color support.
const (
	// ColorPrimary is used for focused borders.
	ColorPrimary = "#0EA5E9"
	// ColorDeepBlue is the title background.
	ColorDeepBlue = "#075985"
	// ColorRichBlue is used for table header underlines.
	ColorRichBlue = "#0369A1"
	// ColorTeal marks running servers and ready workflows.
	ColorTeal = "#14B8A6"
	// ColorAmber marks incomplete workflows.
	ColorAmber = "#F59E0B"
	// ColorCoral is the error color.
	ColorCoral = "#E11D48"
	ColorWhite = "#FFFFFF"
	// ColorLightGray is used for labels.
	ColorLightGray = "#A1A1AA"
	// ColorMutedGray is used for help text and stopped servers.
	ColorMutedGray = "#71717A"
	// ColorBorderGray is the inactive panel border.
	ColorBorderGray = "#52525B"
)

// Banner is a compact ASCII art shown at the top of installer output.
const Banner = `
  .-[ mcp ]-.
  |  o---o  |
  |  |   |  |
  '-o-----o-'`

// StartupBanner returns the banner with the application name appended.
func StartupBanner() string {
	return Banner + "\n" +
		"  " + CLIName + "\n"
}
