// Package sql screens user SQL before it is wrapped in EXPLAIN.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize trims the query, strips one trailing semicolon and
// rejects anything that still holds a statement separator. Semicolons inside
// string literals, quoted identifiers and comments do not count, and a
// trailing semicolon may be followed by comments.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	var semicolons []int
	scanCode(sqlQuery, func(i int, c byte) {
		if c == ';' {
			semicolons = append(semicolons, i)
		}
	})
	if len(semicolons) == 0 {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	last := semicolons[len(semicolons)-1]
	if len(semicolons) > 1 || !onlyTrivia(sqlQuery[last+1:]) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: strings.TrimRight(sqlQuery[:last], " \t\n\r")}
}

const (
	stateCode = iota
	stateSingleQuote
	stateDoubleQuote
	stateLineComment
	stateBlockComment
)

// scanCode calls fn for every byte outside literals and comments. Opening
// quotes are reported; their contents are not. All delimiters are ASCII so
// multi-byte runes pass through untouched.
func scanCode(s string, fn func(i int, c byte)) {
	state := stateCode
	next := func(i int) byte {
		if i+1 < len(s) {
			return s[i+1]
		}
		return 0
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateCode:
			switch {
			case c == '-' && next(i) == '-':
				state = stateLineComment
				i++
			case c == '/' && next(i) == '*':
				state = stateBlockComment
				i++
			default:
				if c == '\'' {
					state = stateSingleQuote
				} else if c == '"' {
					state = stateDoubleQuote
				}
				fn(i, c)
			}
		case stateSingleQuote, stateDoubleQuote:
			quote := byte('\'')
			if state == stateDoubleQuote {
				quote = '"'
			}
			// '' re-enters the literal on the next byte
			if c == '\\' {
				i++
			} else if c == quote {
				state = stateCode
			}
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}
		case stateBlockComment:
			if c == '*' && next(i) == '/' {
				state = stateCode
				i++
			}
		}
	}
}

// onlyTrivia reports whether s holds nothing but whitespace and comments.
func onlyTrivia(s string) bool {
	trivia := true
	scanCode(s, func(_ int, c byte) {
		switch c {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			trivia = false
		}
	})
	return trivia
}
