package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/gtc/pkg/cli"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatIndent
	FeatLineDirectives
	FeatCount
)

type Warning int

const (
	WarnUnusedLabel Warning = iota
	WarnUnusedVar
	WarnCKeyword
	WarnError
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
}

// FlagEntry holds the pair of booleans bound to -X<name> and -Xno-<name>.
type FlagEntry struct {
	Enabled  *bool
	Disabled *bool
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatComments:       {"comments", true, "Recognize '#' line comments."},
		FeatIndent:         {"indent", false, "Indent generated statements by block depth."},
		FeatLineDirectives: {"line-directives", false, "Emit '#line' directives pointing back at the source."},
	}

	warnings := map[Warning]Info{
		WarnUnusedLabel: {"unused-label", true, "Warn about labels no GOTO ever jumps to."},
		WarnUnusedVar:   {"unused-var", false, "Warn about variables that are never read in an expression."},
		WarnCKeyword:    {"c-keyword", true, "Warn about names that collide with reserved C words."},
		WarnError:       {"error", false, "Treat warnings as errors."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetAllWarnings toggles every warning except -Werror, which only changes severity.
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		if i != WarnError {
			c.SetWarning(i, enabled)
		}
	}
}

// ApplyFlag handles a single -W/-F style flag such as "-Wno-unused-label" or "-Findent".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 {
		return fmt.Errorf("malformed flag '%s'", flag)
	}

	kind, name := trimmed[0], trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	switch kind {
	case 'W':
		if name == "all" {
			c.SetAllWarnings(enable)
			return nil
		}
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
	case 'F':
		f, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(f, enable)
	default:
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	return nil
}

// SetupFlagGroups registers the warning and feature groups on fs. The returned slices are
// indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]FlagEntry, []FlagEntry) {
	warningFlags := make([]FlagEntry, WarnCount)
	var warningEntries []cli.FlagGroupEntry
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = FlagEntry{Enabled: new(bool), Disabled: new(bool)}
		*warningFlags[i].Enabled = info.Enabled
		warningEntries = append(warningEntries, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  warningFlags[i].Enabled,
			Disabled: warningFlags[i].Disabled,
		})
	}

	featureFlags := make([]FlagEntry, FeatCount)
	var featureEntries []cli.FlagGroupEntry
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = FlagEntry{Enabled: new(bool), Disabled: new(bool)}
		*featureFlags[i].Enabled = info.Enabled
		featureEntries = append(featureEntries, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  featureFlags[i].Enabled,
			Disabled: featureFlags[i].Disabled,
		})
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningEntries)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureEntries)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the group flags the user actually passed back into the
// configuration, leaving defaults (and any -Wall/-Wno-all already applied) untouched.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet, warningFlags, featureFlags []FlagEntry) {
	for i, entry := range warningFlags {
		name := c.Warnings[Warning(i)].Name
		if fs.Changed("W" + name) {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if fs.Changed("Wno-"+name) && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		name := c.Features[Feature(i)].Name
		if fs.Changed("F" + name) {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if fs.Changed("Fno-"+name) && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
