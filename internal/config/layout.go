package config

type LayoutSettings struct {
	SidebarWidth float64 `json:"sidebar_width" toml:"sidebar_width" yaml:"sidebar_width"`
	EditorSplit  float64 `json:"editor_split"  toml:"editor_split"  yaml:"editor_split"`
}

const (
	LayoutSidebarWidthDefault = 0.25
	LayoutSidebarWidthMin     = 0.15
	LayoutSidebarWidthMax     = 0.4
	LayoutEditorSplitDefault  = 0.45
	LayoutEditorSplitMin      = 0.3
	LayoutEditorSplitMax      = 0.7
)

func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		SidebarWidth: LayoutSidebarWidthDefault,
		EditorSplit:  LayoutEditorSplitDefault,
	}
}

func NormaliseLayoutSettings(in LayoutSettings) LayoutSettings {
	return LayoutSettings{
		SidebarWidth: clampFloat(
			in.SidebarWidth,
			LayoutSidebarWidthMin,
			LayoutSidebarWidthMax,
			LayoutSidebarWidthDefault,
		),
		EditorSplit: clampFloat(
			in.EditorSplit,
			LayoutEditorSplitMin,
			LayoutEditorSplitMax,
			LayoutEditorSplitDefault,
		),
	}
}

func clampFloat[T ~float64](value, min, max, fallback T) T {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
