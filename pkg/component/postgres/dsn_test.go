package postgres

import (
	"strings"
	"testing"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

func TestBuildDSN_Basic(t *testing.T) {
	opts := &Options{
		Host:     "localhost",
		Port:     5432,
		Username: "postgres",
		Password: "secret",
		Database: "tutor",
		SSLMode:  "disable",
	}

	dsn := BuildDSN(opts)
	want := "host=localhost port=5432 user=postgres password=secret dbname=tutor sslmode=disable"
	if dsn != want {
		t.Errorf("BuildDSN() = %q, want %q", dsn, want)
	}
}

func TestEscapePostgresValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"", "''"},
		{"with space", "'with space'"},
		{"with'quote", `'with\'quote'`},
		{`with\backslash`, `'with\\backslash'`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapePostgresValue(tt.input); got != tt.expected {
				t.Errorf("escapePostgresValue(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildDSN_QuotedPassword(t *testing.T) {
	opts := NewOptions()
	opts.Password = "pass word"

	dsn := BuildDSN(opts)
	if strings.Contains(dsn, "password=pass word") {
		t.Errorf("password with space should be quoted: %s", dsn)
	}
	if !strings.Contains(dsn, "password='pass word'") {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}

func TestOptionsRedaction(t *testing.T) {
	opts := NewOptions()
	opts.Password = "supersecret"

	data, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "supersecret") || !strings.Contains(string(data), "[REDACTED]") {
		t.Errorf("password should be redacted in JSON output: %s", data)
	}
	if strings.Contains(opts.String(), "supersecret") {
		t.Error("password should be redacted in String() output")
	}
}
