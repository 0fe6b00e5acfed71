// Package bindings maps key strings to sandbox actions. Defaults can be
// overridden from bindings.toml or bindings.json in the config directory.
package bindings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	toml "github.com/pelletier/go-toml/v2"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Source describes where the bindings were loaded from.
type Source struct {
	Path   string
	Format Format
}

type ActionID string

const (
	ActionSend         ActionID = "send"
	ActionCycleMethod  ActionID = "cycle_method"
	ActionFocusNext    ActionID = "focus_next"
	ActionFocusPrev    ActionID = "focus_prev"
	ActionAddHeader    ActionID = "add_header"
	ActionToggleHeader ActionID = "toggle_header"
	ActionRemoveHeader ActionID = "remove_header"
	ActionSaveRequest  ActionID = "save_request"
	ActionRemoveSaved  ActionID = "remove_saved"
	ActionCopyBody     ActionID = "copy_body"
	ActionToggleDiff   ActionID = "toggle_diff"
	ActionToggleHelp   ActionID = "toggle_help"
	ActionQuit         ActionID = "quit"
)

type definition struct {
	id       ActionID
	help     string
	defaults []string
}

var definitions = []definition{
	{ActionSend, "send request", []string{"ctrl+r", "ctrl+enter"}},
	{ActionCycleMethod, "cycle method", []string{"ctrl+t"}},
	{ActionFocusNext, "next pane", []string{"tab"}},
	{ActionFocusPrev, "previous pane", []string{"shift+tab"}},
	{ActionAddHeader, "add header", []string{"ctrl+n"}},
	{ActionToggleHeader, "toggle header", []string{"ctrl+e"}},
	{ActionRemoveHeader, "remove header", []string{"ctrl+d"}},
	{ActionSaveRequest, "save request", []string{"ctrl+s"}},
	{ActionRemoveSaved, "remove saved", []string{"ctrl+x"}},
	{ActionCopyBody, "copy body", []string{"ctrl+y"}},
	{ActionToggleDiff, "diff with previous", []string{"ctrl+f"}},
	{ActionToggleHelp, "help", []string{"f1"}},
	{ActionQuit, "quit", []string{"ctrl+c"}},
}

var definitionLookup = func() map[ActionID]definition {
	out := make(map[ActionID]definition, len(definitions))
	for _, def := range definitions {
		out[def.id] = def
	}
	return out
}()

// Binding is one key bound to an action.
type Binding struct {
	Action ActionID
	Key    string
}

// Map resolves key strings to actions.
type Map struct {
	byKey    map[string]ActionID
	byAction map[ActionID][]string
}

// Load reads bindings.toml, then bindings.json, from dir. Missing files yield
// the defaults.
func Load(dir string) (*Map, Source, error) {
	candidates := []Source{
		{Path: filepath.Join(dir, "bindings.toml"), Format: FormatTOML},
		{Path: filepath.Join(dir, "bindings.json"), Format: FormatJSON},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				fmt.Errorf("read bindings %q: %w", candidate.Path, err),
			)
			continue
		}

		overrides, err := parseConfig(data, candidate.Format)
		if err != nil {
			return nil, Source{}, fmt.Errorf("parse bindings %q: %w", candidate.Path, err)
		}
		built, err := buildMap(overrides)
		if err != nil {
			return nil, Source{}, fmt.Errorf("apply bindings %q: %w", candidate.Path, err)
		}
		return built, candidate, nil
	}

	if accumulated != nil {
		return nil, Source{}, accumulated
	}
	return DefaultMap(), Source{Path: candidates[0].Path, Format: FormatTOML}, nil
}

// DefaultMap builds the built-in bindings.
func DefaultMap() *Map {
	m, err := buildMap(nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the action bound to key.
func (m *Map) Match(key string) (ActionID, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.byKey[NormalizeKeyString(key)]
	return id, ok
}

// Keys lists the keys bound to action.
func (m *Map) Keys(action ActionID) []string {
	if m == nil {
		return nil
	}
	keys := m.byAction[action]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Help lists every action as "key  description" in definition order.
func (m *Map) Help() []string {
	out := make([]string, 0, len(definitions))
	for _, def := range definitions {
		keys := m.Keys(def.id)
		if len(keys) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("%-12s %s", keys[0], def.help))
	}
	return out
}

type configFile struct {
	Bindings map[string][]string `json:"bindings" toml:"bindings"`
}

func parseConfig(data []byte, format Format) (map[ActionID][]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var payload configFile
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	overrides := make(map[ActionID][]string, len(payload.Bindings))
	for key, specs := range payload.Bindings {
		id := ActionID(key)
		if _, ok := definitionLookup[id]; !ok {
			return nil, fmt.Errorf("unknown action %q", key)
		}
		keys := make([]string, 0, len(specs))
		for _, spec := range specs {
			normalized, err := normalizeStep(spec)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", key, err)
			}
			keys = append(keys, normalized)
		}
		overrides[id] = keys
	}
	return overrides, nil
}

func buildMap(overrides map[ActionID][]string) (*Map, error) {
	m := &Map{
		byKey:    make(map[string]ActionID),
		byAction: make(map[ActionID][]string, len(definitions)),
	}
	for _, def := range definitions {
		keys := def.defaults
		if override, ok := overrides[def.id]; ok {
			keys = override
		}
		for _, key := range keys {
			key = NormalizeKeyString(key)
			if key == "" {
				continue
			}
			if existing, ok := m.byKey[key]; ok {
				return nil, fmt.Errorf("binding %q assigned to both %s and %s", key, existing, def.id)
			}
			m.byKey[key] = def.id
			m.byAction[def.id] = append(m.byAction[def.id], key)
		}
	}
	return m, nil
}

func normalizeStep(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty binding")
	}
	if strings.ContainsAny(raw, " \t") {
		return "", fmt.Errorf("binding %q: multi-step bindings are not supported", raw)
	}

	runes := []rune(raw)
	if len(runes) == 1 {
		if unicode.IsUpper(runes[0]) {
			return "shift+" + strings.ToLower(raw), nil
		}
		return raw, nil
	}

	parts := strings.Split(raw, "+")
	var key string
	mods := make(map[string]struct{})
	for _, part := range parts {
		lower := strings.ToLower(strings.TrimSpace(part))
		switch lower {
		case "":
			continue
		case "ctrl", "control":
			mods["ctrl"] = struct{}{}
		case "alt", "option":
			mods["alt"] = struct{}{}
		case "shift":
			mods["shift"] = struct{}{}
		default:
			if key != "" {
				return "", fmt.Errorf("binding %q has more than one key", raw)
			}
			key = lower
		}
	}
	if key == "" {
		return "", fmt.Errorf("binding %q missing key", raw)
	}

	out := make([]string, 0, 4)
	for _, mod := range []string{"ctrl", "alt", "shift"} {
		if _, ok := mods[mod]; ok {
			out = append(out, mod)
		}
	}
	return strings.Join(append(out, key), "+"), nil
}

// NormalizeKeyString converts a tea.KeyMsg string into lookup form.
func NormalizeKeyString(raw string) string {
	normalized, err := normalizeStep(raw)
	if err != nil {
		return ""
	}
	return normalized
}

// KnownActions returns the sorted action identifiers.
func KnownActions() []ActionID {
	ids := make([]ActionID, 0, len(definitions))
	for _, def := range definitions {
		ids = append(ids, def.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
