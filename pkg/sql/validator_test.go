package sql

import (
	"errors"
	"testing"
)

func TestValidateAndNormalize_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no semicolon", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"trailing semicolon and whitespace", "SELECT 1 ;  \n", "SELECT 1"},
		{"surrounding whitespace", "  SELECT 1  ", "SELECT 1"},
		{"empty", "   ", ""},
		{"semicolon in single quotes", "SELECT * FROM t WHERE a = 'x;y'", "SELECT * FROM t WHERE a = 'x;y'"},
		{"doubled quote escape", "SELECT 'it''s; fine';", "SELECT 'it''s; fine'"},
		{"backslash escape", `SELECT 'it\'s; fine'`, `SELECT 'it\'s; fine'`},
		{"semicolon in quoted identifier", `SELECT "a;b" FROM t;`, `SELECT "a;b" FROM t`},
		{"semicolon in line comment", "SELECT 1 -- a; b\nFROM t", "SELECT 1 -- a; b\nFROM t"},
		{"semicolon in block comment", "SELECT /* x; y */ 1", "SELECT /* x; y */ 1"},
		{"comment after trailing semicolon", "SELECT 1; -- done", "SELECT 1"},
		{"block comment after trailing semicolon", "SELECT 1;\n/* end */", "SELECT 1"},
		{"multiline", "SELECT a,\n  b\nFROM t\nWHERE c > 1;\n", "SELECT a,\n  b\nFROM t\nWHERE c > 1"},
		{"unicode", "SELECT 'naïve;' AS ü;", "SELECT 'naïve;' AS ü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if result.Error != nil {
				t.Fatalf("unexpected error: %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result.NormalizedSQL)
			}
		})
	}
}

func TestValidateAndNormalize_MultipleStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two statements", "SELECT 1; SELECT 2"},
		{"two statements with trailing", "SELECT 1; SELECT 2;"},
		{"drop after select", "SELECT * FROM users; DROP TABLE users"},
		{"double semicolon", "SELECT 1;;"},
		{"statement after closed comment", "SELECT 1; /* x */ DELETE FROM t"},
		{"statement after closed string", "SELECT 'a'; SELECT 'b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if !errors.Is(result.Error, ErrMultipleStatements) {
				t.Errorf("expected ErrMultipleStatements, got %v", result.Error)
			}
			if result.NormalizedSQL != "" {
				t.Errorf("expected empty SQL on error, got %q", result.NormalizedSQL)
			}
		})
	}
}

func TestScanCode_SkipsLiteralsAndComments(t *testing.T) {
	var code []byte
	scanCode("a'b'c\"d\"e--f\ng/*h*/i", func(_ int, c byte) { code = append(code, c) })

	if got := string(code); got != "a'c\"e\ngi" {
		t.Errorf("unexpected code bytes %q", got)
	}
}

func TestOnlyTrivia(t *testing.T) {
	tests := map[string]bool{
		"":             true,
		"  \n\t":       true,
		"-- comment":   true,
		"/* a */ -- b": true,
		"x":            false,
		"/* a */ x":    false,
		"'string'":     false,
		"-- a\nSELECT": false,
		"/* unclosed ": true,
	}

	for input, want := range tests {
		if got := onlyTrivia(input); got != want {
			t.Errorf("onlyTrivia(%q) = %v, want %v", input, got, want)
		}
	}
}
