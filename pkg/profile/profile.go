// Package profile loads and validates the spool profile: how log lines
// decompose, how timestamps parse, and which start/end message patterns
// define the events to reconstruct. A broken profile is fatal before any
// log line is consumed; log content itself is never validated here.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/spool/pkg/dotdir"
)

const (
	profileFile = "profile.toml"

	// v0 is the alpha version of the profile schema
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Loader struct {
	ddm        *dotdir.Manager
	targetPath string

	// explicit marks a loader pointed at a user-supplied path, where a
	// missing file is an error rather than a defaults fallback.
	explicit bool
}

// NewLoader resolves the active .spool/ directory and points the loader at
// its profile.toml. With no resolvable directory the loader falls back to
// defaults on Load and errors on Save.
func NewLoader(override string) (*Loader, error) {
	loader := &Loader{}

	loader.ddm = dotdir.NewManager()
	target, err := loader.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return loader, nil
	}

	path := filepath.Join(target, profileFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	// Always set targetPath when the directory exists so Save can
	// create or overwrite the file.
	loader.targetPath = path

	return loader, nil
}

// NewFileLoader points the loader at an explicit profile.toml path,
// bypassing dotdir resolution. Used by the --profile flag. Unlike
// dotdir-resolved loaders, a missing file here is an error on Load: the
// user named the path, so a typo must not run with defaults.
func NewFileLoader(path string) *Loader {
	return &Loader{targetPath: path, explicit: true}
}

func (l *Loader) GetTarget() string {
	return l.targetPath
}

// Load reads the profile from profile.toml in the target .spool/ directory.
// If a dotdir-resolved file does not exist, returns NewDefaultProfile() so
// callers always receive a fully-populated Profile; loaders created with
// NewFileLoader instead fail on a missing file. Fields explicitly set in
// the file override the defaults.
func (l *Loader) Load() (*Profile, error) {
	if l.targetPath == "" {
		return NewDefaultProfile(), nil
	}

	data, err := os.ReadFile(l.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !l.explicit {
			return NewDefaultProfile(), nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	p, err := ParseTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(p)

	return p, nil
}

// applyDefaults fills zero-value fields in p with values from NewDefaultProfile().
func applyDefaults(p *Profile) {
	defaults := NewDefaultProfile()

	if p.Version == 0 {
		p.Version = defaults.Version
	}

	if p.Log.HeaderPattern == "" {
		p.Log.HeaderPattern = defaults.Log.HeaderPattern
	}
	if p.Log.TimeLayout == "" {
		p.Log.TimeLayout = defaults.Log.TimeLayout
	}

	if p.Trace.Category == "" {
		p.Trace.Category = defaults.Trace.Category
	}
	if p.Trace.PID == 0 {
		p.Trace.PID = defaults.Trace.PID
	}
	if p.Trace.File == "" {
		p.Trace.File = defaults.Trace.File
	}
}

// Save persists the profile to profile.toml in the target .spool/ directory.
func (l *Loader) Save(p *Profile) error {
	if p == nil {
		return errors.New("cannot save nil profile")
	}

	if l.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	if err := os.WriteFile(l.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}

	return nil
}

// ParseTOML parses raw TOML bytes into a Profile.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseTOML(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := toml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile TOML: %w", err)
	}

	if p.Version != 0 && p.Version != CurrentV {
		return nil, fmt.Errorf("unsupported profile version %d (expected %d)", p.Version, CurrentV)
	}

	return p, nil
}
