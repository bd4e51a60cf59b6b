// Package options defines the contract shared by every option group of the
// tutor RAG server.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join builds a flag name prefix: Join("cache", "redis") is "cache.redis.".
// No prefixes yield "".
func Join(prefixes ...string) string {
	if joined := strings.Join(prefixes, "."); joined != "" {
		return joined + "."
	}
	return ""
}

// IOptions is implemented by each option group bound to a flag section.
type IOptions interface {
	// Validate reports every invalid field; an empty slice means valid.
	Validate() []error

	// AddFlags binds the group's fields under the given prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Completer is implemented by groups that derive defaults after flags and
// config files are parsed, such as secrets read from the environment.
type Completer interface {
	Complete() error
}
