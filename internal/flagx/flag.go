// Package flagx lets several components share os.Args without tripping over
// each other's flags: each one filters the arguments down to the flags it owns.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvName names the environment variable consulted when neither -c nor
// -config is given on the command line.
const ConfigEnvName = "HRKEEPER_CONFIG"

// FilterArgs keeps only the allowedFlags (and their values) from args.
//
// Both "-c conf.json" and "--config=conf.json" forms are recognized. A token
// that starts with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFilePath returns the JSON config path given with -c or -config in
// args. When neither is present it falls back to $HRKEEPER_CONFIG, and to ""
// when that is unset too.
func ConfigFilePath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if config == "" {
		config = os.Getenv(ConfigEnvName)
	}
	return config
}
