// Package flagx lets several independent flag sets share one command line.
// The config loader parses -c/-config first and the remaining flags later,
// each pass only seeing the arguments it understands.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted when no -c/-config
// flag is present.
const ConfigEnvVar = "RD_CONFIG"

// FilterArgs keeps only the allowed flags (and their values) from args.
// Both "-f value" and "-f=value" forms are recognised; a following token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := set[name]; keep {
				out = append(out, arg)
			}
			continue
		}

		if _, keep := set[arg]; !keep {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the JSON config file named by -c or -config in args,
// falling back to $RD_CONFIG. Empty means no file.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	return path
}
