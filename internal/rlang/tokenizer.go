// Package rlang tokenizes R source text and extracts top-level definitions
// (functions, S4 generics/methods, classes) and package references from it.
//
// Input requirements:
//   - Must be UTF-8 encoded
//   - Must use \n only for linebreaks
package rlang

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType classifies a token.
type TokenType int

const (
	TokenWhitespace TokenType = iota
	TokenComment
	TokenIdentifier
	TokenString
	TokenNumber
	TokenOperator
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon
)

var tokenTypeNames = map[TokenType]string{
	TokenWhitespace: "whitespace",
	TokenComment:    "comment",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenOperator:   "operator",
	TokenLParen:     "lparen",
	TokenRParen:     "rparen",
	TokenLBrace:     "lbrace",
	TokenRBrace:     "rbrace",
	TokenLBracket:   "lbracket",
	TokenRBracket:   "rbracket",
	TokenComma:      "comma",
	TokenSemicolon:  "semicolon",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit of R source.
// Value holds the unquoted contents for strings and backtick identifiers.
type Token struct {
	Type   TokenType
	Value  string
	Line   int // 1-indexed
	Column int // 1-indexed, counted in runes
	Offset int // byte offset into the source
}

// Is reports whether the token has the given type and value.
func (t Token) Is(typ TokenType, value string) bool {
	return t.Type == typ && t.Value == value
}

var (
	// ErrUnterminatedString is reported for a string or backtick name that
	// runs to the end of the input.
	ErrUnterminatedString = errors.New("unterminated string")

	// ErrInvalidUTF8 is reported when the input is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// SyntaxError locates a tokenizer failure in the source.
type SyntaxError struct {
	Line   int
	Column int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Operators ordered longest first so the scanner takes the longest match.
var operators = []string{
	":::", "<<-", "->>",
	"<-", "->", "<=", ">=", "==", "!=", "&&", "||", "::", ":=", "|>",
	"+", "-", "*", "/", "^", "<", ">", "!", "&", "|", "~", "?", ":", "=", "$", "@", "\\",
}

type scanner struct {
	src    string
	pos    int
	line   int
	column int
	tokens []Token
}

// Tokenize splits R source into tokens, including whitespace and comments.
func Tokenize(code string) ([]Token, error) {
	s := &scanner{src: code, line: 1, column: 1}
	if err := s.checkEncoding(); err != nil {
		return nil, err
	}
	for s.pos < len(s.src) {
		if err := s.next(); err != nil {
			return nil, err
		}
	}
	return s.tokens, nil
}

func (s *scanner) checkEncoding() error {
	if utf8.ValidString(s.src) {
		return nil
	}
	line, column := 1, 1
	for i, r := range s.src {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s.src[i:]); size <= 1 {
				return &SyntaxError{Line: line, Column: column, Err: ErrInvalidUTF8}
			}
		}
		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return &SyntaxError{Line: line, Column: column, Err: ErrInvalidUTF8}
}

func (s *scanner) peek(ahead int) rune {
	p := s.pos
	for i := 0; i < ahead; i++ {
		if p >= len(s.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(s.src[p:])
		p += size
	}
	if p >= len(s.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.src[p:])
	return r
}

// advance consumes one rune and keeps line/column current.
func (s *scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

func (s *scanner) emit(typ TokenType, value string, start, line, column int) {
	s.tokens = append(s.tokens, Token{Type: typ, Value: value, Line: line, Column: column, Offset: start})
}

func (s *scanner) next() error {
	start, line, column := s.pos, s.line, s.column
	r := s.peek(0)

	switch {
	case isSpace(r):
		for s.pos < len(s.src) && isSpace(s.peek(0)) {
			s.advance()
		}
		s.emit(TokenWhitespace, s.src[start:s.pos], start, line, column)

	case r == '#':
		for s.pos < len(s.src) && s.peek(0) != '\n' {
			s.advance()
		}
		s.emit(TokenComment, s.src[start:s.pos], start, line, column)

	case (r == 'r' || r == 'R') && (s.peek(1) == '"' || s.peek(1) == '\''):
		return s.rawString(start, line, column)

	case r == '"' || r == '\'':
		value, err := s.quoted(r)
		if err != nil {
			return &SyntaxError{Line: line, Column: column, Err: err}
		}
		s.emit(TokenString, value, start, line, column)

	case r == '`':
		value, err := s.quoted(r)
		if err != nil {
			return &SyntaxError{Line: line, Column: column, Err: err}
		}
		s.emit(TokenIdentifier, value, start, line, column)

	case isDigit(r) || (r == '.' && isDigit(s.peek(1))):
		s.number()
		s.emit(TokenNumber, s.src[start:s.pos], start, line, column)

	case isIdentStart(r):
		for s.pos < len(s.src) && isIdentPart(s.peek(0)) {
			s.advance()
		}
		s.emit(TokenIdentifier, s.src[start:s.pos], start, line, column)

	case r == '%':
		s.advance()
		for s.pos < len(s.src) && s.peek(0) != '%' && s.peek(0) != '\n' {
			s.advance()
		}
		if s.peek(0) == '%' {
			s.advance()
		}
		s.emit(TokenOperator, s.src[start:s.pos], start, line, column)

	default:
		if typ, ok := punctuation[r]; ok {
			s.advance()
			s.emit(typ, string(r), start, line, column)
			return nil
		}
		for _, op := range operators {
			if strings.HasPrefix(s.src[s.pos:], op) {
				for range op {
					s.advance()
				}
				s.emit(TokenOperator, op, start, line, column)
				return nil
			}
		}
		// Unknown characters are kept as single-rune operators.
		s.advance()
		s.emit(TokenOperator, s.src[start:s.pos], start, line, column)
	}
	return nil
}

var punctuation = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	';': TokenSemicolon,
}

// quoted consumes a delimited string starting at the opening quote and
// returns its contents with escape sequences left intact.
func (s *scanner) quoted(delim rune) (string, error) {
	s.advance()
	contentStart := s.pos
	for s.pos < len(s.src) {
		r := s.peek(0)
		if r == '\\' {
			s.advance()
			if s.pos < len(s.src) {
				s.advance()
			}
			continue
		}
		if r == delim {
			value := s.src[contentStart:s.pos]
			s.advance()
			return value, nil
		}
		s.advance()
	}
	return "", ErrUnterminatedString
}

// rawString handles R 4.0 raw strings: r"(...)", R'[...]', r"---{...}---".
func (s *scanner) rawString(start, line, column int) error {
	s.advance() // r
	quote := s.advance()
	dashes := 0
	for s.peek(0) == '-' {
		s.advance()
		dashes++
	}
	var closer rune
	switch s.peek(0) {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return &SyntaxError{Line: line, Column: column, Err: fmt.Errorf("malformed raw string delimiter")}
	}
	s.advance()
	terminator := string(closer) + strings.Repeat("-", dashes) + string(quote)
	contentStart := s.pos
	for s.pos < len(s.src) {
		if strings.HasPrefix(s.src[s.pos:], terminator) {
			value := s.src[contentStart:s.pos]
			for range terminator {
				s.advance()
			}
			s.emit(TokenString, value, start, line, column)
			return nil
		}
		s.advance()
	}
	return &SyntaxError{Line: line, Column: column, Err: ErrUnterminatedString}
}

func (s *scanner) number() {
	if s.peek(0) == '0' && (s.peek(1) == 'x' || s.peek(1) == 'X') {
		s.advance()
		s.advance()
		for isHexDigit(s.peek(0)) {
			s.advance()
		}
	} else {
		for isDigit(s.peek(0)) || s.peek(0) == '.' {
			s.advance()
		}
		if r := s.peek(0); r == 'e' || r == 'E' {
			next := s.peek(1)
			if isDigit(next) || ((next == '+' || next == '-') && isDigit(s.peek(2))) {
				s.advance()
				s.advance()
				for isDigit(s.peek(0)) {
					s.advance()
				}
			}
		}
	}
	if r := s.peek(0); r == 'L' || r == 'i' {
		s.advance()
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\u00a0'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '.' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
