package config

import "github.com/spf13/pflag"

// CLIFlags is the raw result of parsing argv. Values hold the parsed flag or
// its default; Changed tells "not supplied" apart from "supplied as the
// default value" where that distinction matters (the file-vs-CLI merge).
type CLIFlags struct {
	MediaMinimumDuration int64
	Verbosity            string
	Quiet                bool
	IdleInhibitor        string
	ConfigPath           string
	DiagAddr             string
	DumpConfig           bool

	fs *pflag.FlagSet
}

// ParseFlags parses argv (excluding argv[0]) into CLIFlags.
func ParseFlags(argv []string) (*CLIFlags, error) {
	fs := pflag.NewFlagSet("idle-inhibitd", pflag.ContinueOnError)

	f := &CLIFlags{fs: fs}
	fs.Int64VarP(&f.MediaMinimumDuration, "media-minimum-duration", "d", 5,
		"minimum media duration in seconds to inhibit idle; 0 disables debouncing")
	fs.StringVarP(&f.Verbosity, "verbosity", "v", "warn",
		"log verbosity: off|error|warn|info|debug|trace")
	fs.BoolVarP(&f.Quiet, "quiet", "q", false,
		"disable logging completely (equivalent to --verbosity=off)")
	fs.StringVar(&f.IdleInhibitor, "idle-inhibitor", "wayland",
		"inhibit backend: d-bus|wayland|dry-run")
	fs.StringVarP(&f.ConfigPath, "config", "c", "",
		"path to config.toml, overriding the XDG default")
	fs.StringVar(&f.DiagAddr, "diag-addr", "",
		"optional loopback address to serve /metrics and /status on (e.g. 127.0.0.1:9123)")
	fs.BoolVar(&f.DumpConfig, "dump-config", false,
		"write the fully resolved configuration to <config-dir>/resolved.toml and exit")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	if f.Quiet && fs.Changed("verbosity") {
		return nil, errConflict("--quiet and --verbosity are mutually exclusive")
	}
	if f.Quiet {
		f.Verbosity = "off"
	}

	return f, nil
}

// Changed reports whether flag was explicitly set on the command line, as
// opposed to carrying its default.
func (f *CLIFlags) Changed(flag string) bool {
	return f.fs.Changed(flag)
}

type conflictError string

func (e conflictError) Error() string { return string(e) }

func errConflict(msg string) error { return conflictError(msg) }
