package theme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	toml "github.com/pelletier/go-toml/v2"
)

// Palette is the user-editable subset of a Theme. Empty fields keep the base
// value.
type Palette struct {
	Accent        string `json:"accent"         toml:"accent"`
	Focus         string `json:"focus"          toml:"focus"`
	Text          string `json:"text"           toml:"text"`
	Muted         string `json:"muted"          toml:"muted"`
	Success       string `json:"success"        toml:"success"`
	Redirect      string `json:"redirect"       toml:"redirect"`
	Failure       string `json:"failure"        toml:"failure"`
	Transport     string `json:"transport"      toml:"transport"`
	Informational string `json:"informational"  toml:"informational"`
	MethodGet     string `json:"method_get"     toml:"method_get"`
	MethodPost    string `json:"method_post"    toml:"method_post"`
	MethodPut     string `json:"method_put"     toml:"method_put"`
	MethodPatch   string `json:"method_patch"   toml:"method_patch"`
	MethodDelete  string `json:"method_delete"  toml:"method_delete"`
	Chroma        string `json:"chroma"         toml:"chroma"`
	Border        string `json:"border"         toml:"border"`
}

// LoadFile reads a palette from a .toml or .json file and applies it to base.
// A missing file returns base unchanged.
func LoadFile(path string, base Theme) (Theme, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("theme: read %q: %w", path, err)
	}

	var p Palette
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return base, fmt.Errorf("theme: decode %q: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return base, fmt.Errorf("theme: decode %q: %w", path, err)
		}
	default:
		return base, fmt.Errorf("theme: unsupported format %q", filepath.Ext(path))
	}
	return Apply(base, p)
}

// Apply overlays p onto base.
func Apply(base Theme, p Palette) (Theme, error) {
	out := base
	set := func(field, value string, fn func(lipgloss.Color)) error {
		if strings.TrimSpace(value) == "" {
			return nil
		}
		c, err := toColor(field, value)
		if err != nil {
			return err
		}
		fn(c)
		return nil
	}

	steps := []struct {
		field string
		value string
		apply func(lipgloss.Color)
	}{
		{"accent", p.Accent, func(c lipgloss.Color) { out.EditorBorder = out.EditorBorder.BorderForeground(c) }},
		{"focus", p.Focus, func(c lipgloss.Color) { out.FocusBorder = c }},
		{"text", p.Text, func(c lipgloss.Color) {
			out.ResponseContent = out.ResponseContent.Foreground(c)
			out.ListItem = out.ListItem.Foreground(c)
		}},
		{"muted", p.Muted, func(c lipgloss.Color) { out.Muted = out.Muted.Foreground(c) }},
		{"success", p.Success, func(c lipgloss.Color) {
			out.Outcome.Success = out.Outcome.Success.Foreground(c)
			out.Success = out.Success.Foreground(c)
		}},
		{"redirect", p.Redirect, func(c lipgloss.Color) { out.Outcome.Redirect = out.Outcome.Redirect.Foreground(c) }},
		{"failure", p.Failure, func(c lipgloss.Color) {
			out.Outcome.Failure = out.Outcome.Failure.Foreground(c)
			out.Error = out.Error.Foreground(c)
		}},
		{"transport", p.Transport, func(c lipgloss.Color) { out.Outcome.Transport = out.Outcome.Transport.Foreground(c) }},
		{"informational", p.Informational, func(c lipgloss.Color) {
			out.Outcome.Informational = out.Outcome.Informational.Foreground(c)
		}},
		{"method_get", p.MethodGet, func(c lipgloss.Color) { out.MethodColors.GET = c }},
		{"method_post", p.MethodPost, func(c lipgloss.Color) { out.MethodColors.POST = c }},
		{"method_put", p.MethodPut, func(c lipgloss.Color) { out.MethodColors.PUT = c }},
		{"method_patch", p.MethodPatch, func(c lipgloss.Color) { out.MethodColors.PATCH = c }},
		{"method_delete", p.MethodDelete, func(c lipgloss.Color) { out.MethodColors.DELETE = c }},
	}
	for _, step := range steps {
		if err := set(step.field, step.value, step.apply); err != nil {
			return base, err
		}
	}

	if chroma := strings.TrimSpace(p.Chroma); chroma != "" {
		out.ChromaStyle = chroma
	}
	if border := strings.ToLower(strings.TrimSpace(p.Border)); border != "" {
		b, err := parseBorderStyle(border)
		if err != nil {
			return base, err
		}
		out.EditorBorder = out.EditorBorder.BorderStyle(b)
		out.ResponseBorder = out.ResponseBorder.BorderStyle(b)
		out.SidebarBorder = out.SidebarBorder.BorderStyle(b)
	}
	return out, nil
}

func toColor(field string, value string) (lipgloss.Color, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "#") {
		return lipgloss.Color(trimmed), nil
	}
	hex := trimmed[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return "", fmt.Errorf("%s: invalid hex colour %q", field, value)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", fmt.Errorf("%s: invalid hex colour %q", field, value)
		}
	}
	return lipgloss.Color(trimmed), nil
}

func parseBorderStyle(value string) (lipgloss.Border, error) {
	switch value {
	case "none", "hidden", "off":
		return lipgloss.HiddenBorder(), nil
	case "normal", "single":
		return lipgloss.NormalBorder(), nil
	case "rounded":
		return lipgloss.RoundedBorder(), nil
	case "thick", "heavy":
		return lipgloss.ThickBorder(), nil
	case "double":
		return lipgloss.DoubleBorder(), nil
	case "ascii":
		return lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}, nil
	default:
		return lipgloss.Border{}, fmt.Errorf("border: unknown border style %q", value)
	}
}
