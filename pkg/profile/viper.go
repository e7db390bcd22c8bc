package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/spool/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultProfile(), reads the profile.toml file
// (if found via dotdir resolution), and binds environment variables
// with the SPOOL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command's PreRunE)
//  2. Environment variables (SPOOL_TRACE_FILE, SPOOL_LOG_TIME_LAYOUT, ...)
//  3. profile.toml scalar values
//  4. Defaults from NewDefaultProfile()
//
// Event definitions are an ordered array of tables and stay with the TOML
// loader; viper only governs the scalar settings.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("profile")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Profile file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading profile: %w", err)
		}
	}

	v.SetEnvPrefix("SPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultProfile() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultProfile()

	v.SetDefault("version", d.Version)

	// Log decomposition
	v.SetDefault("log.header_pattern", d.Log.HeaderPattern)
	v.SetDefault("log.time_layout", d.Log.TimeLayout)

	// Trace export
	v.SetDefault("trace.category", d.Trace.Category)
	v.SetDefault("trace.pid", d.Trace.PID)
	v.SetDefault("trace.file", d.Trace.File)
}

// ApplyViper overlays viper-resolved scalar settings onto a loaded profile,
// folding in any env or bound-flag overrides.
func ApplyViper(v *viper.Viper, p *Profile) {
	p.Log.HeaderPattern = v.GetString("log.header_pattern")
	p.Log.TimeLayout = v.GetString("log.time_layout")
	p.Trace.Category = v.GetString("trace.category")
	p.Trace.PID = v.GetInt64("trace.pid")
	p.Trace.File = v.GetString("trace.file")
}
