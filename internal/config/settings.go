package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatYAML SettingsFormat = "yaml"
	SettingsFormatJSON SettingsFormat = "json"
)

const (
	DefaultBaseURL = "http://localhost:8080"

	OrderingLastWriterWins = "last-writer-wins"
	OrderingLatestIssued   = "latest-issued"
)

type Settings struct {
	BaseURL    string             `json:"base_url"   toml:"base_url"   yaml:"base_url"`
	Ordering   string             `json:"ordering"   toml:"ordering"   yaml:"ordering"`
	Timeout    string             `json:"timeout"    toml:"timeout"    yaml:"timeout"`
	Credential CredentialSettings `json:"credential" toml:"credential" yaml:"credential"`
	Storage    StorageSettings    `json:"storage"    toml:"storage"    yaml:"storage"`
	Log        LogSettings        `json:"log"        toml:"log"        yaml:"log"`
	Trace      TraceSettings      `json:"trace"      toml:"trace"      yaml:"trace"`
	UI         UISettings         `json:"ui"         toml:"ui"         yaml:"ui"`
}

type CredentialSettings struct {
	Policy      string `json:"policy"      toml:"policy"      yaml:"policy"`
	Placeholder string `json:"placeholder" toml:"placeholder" yaml:"placeholder"`
}

type StorageSettings struct {
	Backend string `json:"backend" toml:"backend" yaml:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	// Relative paths resolve against Dir().
	Path string `json:"path" toml:"path" yaml:"path"`
}

type LogSettings struct {
	Level  string `json:"level"  toml:"level"  yaml:"level"`
	Format string `json:"format" toml:"format" yaml:"format"`
}

type TraceSettings struct {
	Endpoint string `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Insecure bool   `json:"insecure" toml:"insecure" yaml:"insecure"`
	Service  string `json:"service"  toml:"service"  yaml:"service"`
}

type UISettings struct {
	Highlight *bool          `json:"highlight,omitempty" toml:"highlight,omitempty" yaml:"highlight,omitempty"`
	Theme     string         `json:"theme"               toml:"theme"               yaml:"theme"`
	Layout    LayoutSettings `json:"layout"              toml:"layout"              yaml:"layout"`
}

// HighlightEnabled defaults to true when unset.
func (u UISettings) HighlightEnabled() bool {
	return u.Highlight == nil || *u.Highlight
}

func Defaults() Settings {
	return Settings{
		BaseURL:  DefaultBaseURL,
		Ordering: OrderingLastWriterWins,
		Credential: CredentialSettings{
			Policy:      "send",
			Placeholder: "null",
		},
		Storage: StorageSettings{Backend: "file", Path: "state"},
		Log:     LogSettings{Level: "info", Format: "text"},
		UI:      UISettings{Layout: DefaultLayoutSettings()},
	}
}

// Normalise fills blanks with defaults. It does not reject bad values; see
// Validate.
func Normalise(in Settings) Settings {
	def := Defaults()
	out := in
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = def.BaseURL
	}
	out.Ordering = strings.ToLower(strings.TrimSpace(out.Ordering))
	if out.Ordering == "" {
		out.Ordering = def.Ordering
	}
	if strings.TrimSpace(out.Credential.Policy) == "" {
		out.Credential.Policy = def.Credential.Policy
	}
	if out.Credential.Placeholder == "" {
		out.Credential.Placeholder = def.Credential.Placeholder
	}
	if strings.TrimSpace(out.Storage.Backend) == "" {
		out.Storage.Backend = def.Storage.Backend
	}
	if strings.TrimSpace(out.Storage.Path) == "" {
		out.Storage.Path = def.Storage.Path
	}
	if strings.TrimSpace(out.Log.Level) == "" {
		out.Log.Level = def.Log.Level
	}
	if strings.TrimSpace(out.Log.Format) == "" {
		out.Log.Format = def.Log.Format
	}
	out.UI.Layout = NormaliseLayoutSettings(out.UI.Layout)
	return out
}

// Validate rejects values that have no meaning.
func (s Settings) Validate() error {
	switch s.Ordering {
	case OrderingLastWriterWins, OrderingLatestIssued:
	default:
		return errdef.New(errdef.CodeConfig, "unknown ordering %q", s.Ordering)
	}
	if _, err := s.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means no timeout.
func (s Settings) TimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(s.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeConfig, err, "parse timeout %q", raw)
	}
	if d < 0 {
		return 0, errdef.New(errdef.CodeConfig, "timeout must not be negative")
	}
	return d, nil
}

// StoragePath resolves Storage.Path against dir.
func (s Settings) StoragePath(dir string) string {
	p := s.Storage.Path
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

type SettingsFormat string
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

// LoadSettings reads the first settings file found in dir, trying TOML, then
// YAML, then JSON. Missing files fall through to defaults; a file that exists
// but does not parse is an error.
func LoadSettings(dir string) (Settings, SettingsHandle, error) {
	if dir == "" {
		dir = Dir()
	}
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.yaml"), Format: SettingsFormatYAML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
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
				fmt.Errorf("read settings %q: %w", candidate.Path, err),
			)
			continue
		}

		settings, err := decodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(
				errdef.CodeConfig,
				err,
				"parse settings %q",
				candidate.Path,
			)
		}
		settings = Normalise(settings)
		if err := settings.Validate(); err != nil {
			return Settings{}, SettingsHandle{}, err
		}
		return settings, candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, errdef.Wrap(errdef.CodeConfig, accumulated, "load settings")
	}

	return Defaults(), SettingsHandle{
		Path:   candidates[0].Path,
		Format: SettingsFormatTOML,
	}, nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	var settings Settings
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
			return Settings{}, err
		}
	case SettingsFormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return settings, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	settings = Normalise(settings)
	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), "settings.toml")
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "ensure settings directory")
	}

	var (
		data []byte
		err  error
	)

	switch format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(settings)
	case SettingsFormatYAML:
		data, err = yaml.Marshal(settings)
	case SettingsFormatJSON:
		buffer := &bytes.Buffer{}
		encoder := json.NewEncoder(buffer)
		encoder.SetIndent("", "  ")
		if err = encoder.Encode(settings); err == nil {
			data = buffer.Bytes()
		}
	default:
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", format)
	}
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %q", path)
	}
	return nil
}

// write to temp file then rename so readers never see a partial file.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".reqbox-settings-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// ApplyEnv overlays REQBOX_BASE_URL, REQBOX_ORDERING and REQBOX_LOG_LEVEL.
func ApplyEnv(s Settings, getenv func(string) string) Settings {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("REQBOX_BASE_URL")); v != "" {
		s.BaseURL = v
	}
	if v := strings.TrimSpace(getenv("REQBOX_ORDERING")); v != "" {
		s.Ordering = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("REQBOX_LOG_LEVEL")); v != "" {
		s.Log.Level = v
	}
	return s
}
