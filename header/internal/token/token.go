package token

import (
	"unicode"
)

type Type int

const (
	LBrace Type = iota
	RBrace
	LParen
	RParen
	Semicolon
	Comma
	Star
	Assign
	Define
	Ident
	String
	Number
	Illegal
	// Unterminated marks a block comment that runs to end of input. It is
	// always the last token.
	Unterminated
)

func (t Type) String() string {
	switch t {
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Semicolon:
		return "';'"
	case Comma:
		return "','"
	case Star:
		return "'*'"
	case Assign:
		return "'='"
	case Define:
		return "#define"
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	case Illegal:
		return "illegal character"
	case Unterminated:
		return "unterminated comment"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

var punct = map[rune]Type{
	'{': LBrace,
	'}': RBrace,
	'(': LParen,
	')': RParen,
	';': Semicolon,
	',': Comma,
	'*': Star,
	'=': Assign,
}

// Tokenize splits C header text into tokens. Comments are dropped, and
// preprocessor directives other than #define are skipped to end of line.
func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		// Block comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			start := line
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				if runes[i] == '\n' {
					line++
				}
				i++
			}
			if i >= len(runes) {
				tokens = append(tokens, Token{"/*", Unterminated, start})
				break
			}
			i++
			continue
		}

		// Preprocessor directive
		if r == '#' {
			start := i + 1
			for start < len(runes) && (runes[start] == ' ' || runes[start] == '\t') {
				start++
			}
			end := start
			for end < len(runes) && unicode.IsLetter(runes[end]) {
				end++
			}
			if string(runes[start:end]) == "define" {
				tokens = append(tokens, Token{"#define", Define, line})
				i = end - 1
				continue
			}
			for i < len(runes) && runes[i] != '\n' {
				if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '\n' {
					line++
					i++
				}
				i++
			}
			line++
			continue
		}

		if typ, ok := punct[r]; ok {
			tokens = append(tokens, Token{string(r), typ, line})
			continue
		}

		// String literal
		if r == '"' {
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			tokens = append(tokens, Token{string(runes[start:min(i, len(runes))]), String, line})
			continue
		}

		// Number, including negative literals and integer suffixes
		if unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) {
			start := i
			i++
			for i < len(runes) {
				c := runes[i]
				if unicode.IsDigit(c) || c == 'x' || c == 'X' ||
					(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
					c == 'u' || c == 'U' || c == 'l' || c == 'L' {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, line})
			i--
			continue
		}

		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) {
				c := runes[i]
				if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		tokens = append(tokens, Token{string(r), Illegal, line})
	}

	return tokens
}
