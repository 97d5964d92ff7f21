// Package config holds the process-wide options the pipeline used to
// read out of global mutable state: which target locale to assemble
// for, whether warnings escalate to errors, and how many errors to
// tolerate before aborting a translation. Options is passed explicitly
// into pipeline.Compile instead, and may be loaded from a TOML file
// via github.com/BurntSushi/toml.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Target names the code-generation locale. x86_64SysV is the only
// value this repo's codegen package implements; the field exists for
// parity with a multi-target configuration record and so a config file
// can name its target explicitly rather than leaving it implicit.
type Target string

const X86_64SysV Target = "x86_64-sysv"

// Options is the configuration record threaded into pipeline.Compile.
type Options struct {
	Target           Target `toml:"target"`
	WarningsAsErrors bool   `toml:"warnings_as_errors"`
	MaxErrors        int    `toml:"max_errors"`
}

// Default returns the options a bare invocation with no config file
// uses.
func Default() Options {
	return Options{Target: X86_64SysV, MaxErrors: 20}
}

// Load reads and parses a TOML configuration file at path, starting
// from Default so an omitted field keeps its default value.
func Load(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader parses TOML configuration from r, for callers that
// already hold an open reader (embedded config, a test fixture).
func LoadReader(r io.Reader) (Options, error) {
	opts := Default()
	if _, err := toml.NewDecoder(r).Decode(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}
