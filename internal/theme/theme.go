package theme

import "github.com/charmbracelet/lipgloss"

type MethodColors struct {
	GET     lipgloss.Color
	POST    lipgloss.Color
	PUT     lipgloss.Color
	PATCH   lipgloss.Color
	DELETE  lipgloss.Color
	Default lipgloss.Color
}

// OutcomeStyles colours the status line of a rendered outcome by class.
type OutcomeStyles struct {
	Success       lipgloss.Style
	Redirect      lipgloss.Style
	Failure       lipgloss.Style
	Transport     lipgloss.Style
	Informational lipgloss.Style
}

type Theme struct {
	AppFrame        lipgloss.Style
	EditorBorder    lipgloss.Style
	ResponseBorder  lipgloss.Style
	SidebarBorder   lipgloss.Style
	FocusBorder     lipgloss.Color
	Header          lipgloss.Style
	HeaderBrand     lipgloss.Style
	HeaderValue     lipgloss.Style
	PaneTitle       lipgloss.Style
	StatusBar       lipgloss.Style
	StatusBarKey    lipgloss.Style
	StatusBarValue  lipgloss.Style
	Notification    lipgloss.Style
	Error           lipgloss.Style
	Success         lipgloss.Style
	Muted           lipgloss.Style
	HeaderKey       lipgloss.Style
	HeaderDisabled  lipgloss.Style
	ListItem        lipgloss.Style
	ListItemActive  lipgloss.Style
	ResponseContent lipgloss.Style
	ResponseHeaders lipgloss.Style
	DiffAdded       lipgloss.Style
	DiffRemoved     lipgloss.Style
	Outcome         OutcomeStyles
	MethodColors    MethodColors
	// ChromaStyle names the chroma style used for JSON bodies.
	ChromaStyle string
}

func DefaultTheme() Theme {
	accent := lipgloss.Color("#7D56F4")
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("#dcd7ff"))

	return Theme{
		AppFrame: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#403B59")),
		EditorBorder: base.BorderStyle(lipgloss.RoundedBorder()).BorderForeground(accent),
		ResponseBorder: base.BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5FB3B3")),
		SidebarBorder: base.BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#A78BFA")),
		FocusBorder: lipgloss.Color("#FFD46A"),
		Header:      lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E1FF")).Padding(0, 1),
		HeaderBrand: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1020")).
			Background(lipgloss.Color("#FBC859")).
			Bold(true).
			Padding(0, 1),
		HeaderValue:    lipgloss.NewStyle().Foreground(lipgloss.Color("#D1CFF6")),
		PaneTitle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Bold(true),
		StatusBar:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Padding(0, 1),
		StatusBarKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8B39")).Bold(true),
		StatusBarValue: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		Notification: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0DEF4")).
			Background(lipgloss.Color("#433C59")).
			Padding(0, 1),
		Error:           lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6E6E")),
		Success:         lipgloss.NewStyle().Foreground(lipgloss.Color("#6EF17E")),
		Muted:           lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6A86")),
		HeaderKey:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD46A")),
		HeaderDisabled:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5E5A72")).Strikethrough(true),
		ListItem:        lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E1FF")),
		ListItemActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("#0F111A")).Background(lipgloss.Color("#FFD46A")).Bold(true),
		ResponseContent: lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E1FF")),
		ResponseHeaders: lipgloss.NewStyle().Foreground(lipgloss.Color("#C7C4E0")),
		DiffAdded:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6EF17E")),
		DiffRemoved:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6E6E")),
		Outcome: OutcomeStyles{
			Success:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6EF17E")).Bold(true),
			Redirect:      lipgloss.NewStyle().Foreground(lipgloss.Color("#56A9DD")).Bold(true),
			Failure:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6E6E")).Bold(true),
			Transport:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8B39")).Bold(true),
			Informational: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Bold(true),
		},
		MethodColors: MethodColors{
			GET:     lipgloss.Color("#34d399"),
			POST:    lipgloss.Color("#60a5fa"),
			PUT:     lipgloss.Color("#f59e0b"),
			PATCH:   lipgloss.Color("#14b8a6"),
			DELETE:  lipgloss.Color("#f87171"),
			Default: lipgloss.Color("#9ca3af"),
		},
		ChromaStyle: "dracula",
	}
}

// Method returns the badge colour for an HTTP method name.
func (m MethodColors) Method(name string) lipgloss.Color {
	switch name {
	case "GET":
		return m.GET
	case "POST":
		return m.POST
	case "PUT":
		return m.PUT
	case "PATCH":
		return m.PATCH
	case "DELETE":
		return m.DELETE
	default:
		return m.Default
	}
}
