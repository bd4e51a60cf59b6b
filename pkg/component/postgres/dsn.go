package postgres

import (
	"fmt"
	"strings"
)

// BuildDSN creates a PostgreSQL key=value DSN from the provided options.
// Values containing spaces, quotes or backslashes are quoted and escaped.
//
//	host=localhost port=5432 user=postgres password=secret dbname=tutor sslmode=disable
func BuildDSN(opts *Options) string {
	if opts == nil {
		return ""
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		escapePostgresValue(opts.Username),
		escapePostgresValue(opts.Password),
		escapePostgresValue(opts.Database),
		opts.SSLMode,
	)
}

func escapePostgresValue(value string) string {
	if value == "" {
		return "''"
	}

	if strings.ContainsAny(value, " '\\") {
		escaped := strings.ReplaceAll(value, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "'", "\\'")
		return "'" + escaped + "'"
	}

	return value
}
