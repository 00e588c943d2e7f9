package rlang

import (
	"slices"
)

// DefinitionKind identifies what a Definition declares.
type DefinitionKind int

const (
	DefinitionFunction DefinitionKind = iota + 1
	DefinitionMethod
	DefinitionClass
)

// Param is one formal parameter of a function, or one (name, class) pair of
// an S4 method signature. Function parameters have an empty Type.
type Param struct {
	Name string
	Type string
}

// Definition is a top-level or nested definition found in source.
type Definition struct {
	Kind       DefinitionKind
	Name       string
	Signature  []Param
	BraceLevel int
	Line       int
	Column     int
}

// Result is everything extracted from one unit of source.
type Result struct {
	Definitions []Definition // source order
	Packages    []string     // sorted, unique
}

// Extractor turns R source text into definitions. The zero value is ready to use.
type Extractor struct{}

// Extract tokenizes code and returns its definitions and referenced packages.
func (Extractor) Extract(code string) (*Result, error) {
	return Extract(code)
}

// Extract tokenizes code and returns its definitions and referenced packages.
func Extract(code string) (*Result, error) {
	all, err := Tokenize(code)
	if err != nil {
		return nil, err
	}

	toks := make([]Token, 0, len(all))
	for _, t := range all {
		if t.Type != TokenWhitespace && t.Type != TokenComment {
			toks = append(toks, t)
		}
	}

	w := &walker{toks: toks, packages: make(map[string]struct{})}
	w.walk()

	pkgs := make([]string, 0, len(w.packages))
	for p := range w.packages {
		pkgs = append(pkgs, p)
	}
	slices.Sort(pkgs)

	return &Result{Definitions: w.defs, Packages: pkgs}, nil
}

var (
	classConstructors = map[string]bool{
		"setClass":    true,
		"setRefClass": true,
	}
	packageLoaders = map[string]bool{
		"library":          true,
		"require":          true,
		"requireNamespace": true,
		"loadNamespace":    true,
	}
)

type walker struct {
	toks       []Token
	open       []TokenType // stack of unclosed brackets
	braceLevel int
	defs       []Definition
	packages   map[string]struct{}
}

func (w *walker) at(i int) Token {
	if i < 0 || i >= len(w.toks) {
		return Token{Type: TokenWhitespace}
	}
	return w.toks[i]
}

func (w *walker) walk() {
	for i := 0; i < len(w.toks); i++ {
		t := w.toks[i]
		switch t.Type {
		case TokenLBrace:
			w.braceLevel++
			w.open = append(w.open, TokenLBrace)
		case TokenRBrace:
			if w.braceLevel > 0 {
				w.braceLevel--
			}
			w.pop(TokenLBrace)
		case TokenLParen, TokenLBracket:
			w.open = append(w.open, t.Type)
		case TokenRParen:
			w.pop(TokenLParen)
		case TokenRBracket:
			w.pop(TokenLBracket)
		case TokenIdentifier, TokenString:
			w.inspect(i)
		}
	}
}

func (w *walker) pop(opener TokenType) {
	if n := len(w.open); n > 0 && w.open[n-1] == opener {
		w.open = w.open[:n-1]
	}
}

// assignable reports whether an `=` at this point is an assignment rather
// than a named call argument.
func (w *walker) assignable() bool {
	return len(w.open) == 0 || w.open[len(w.open)-1] == TokenLBrace
}

func (w *walker) isAssignment(t Token) bool {
	if t.Type != TokenOperator {
		return false
	}
	switch t.Value {
	case "<-", "<<-":
		return true
	case "=":
		return w.assignable()
	}
	return false
}

func (w *walker) inspect(i int) {
	t := w.toks[i]
	prev := w.at(i - 1)
	if prev.Type == TokenOperator && (prev.Value == "$" || prev.Value == "@" || prev.Value == "::" || prev.Value == ":::") {
		return
	}

	if t.Type == TokenIdentifier {
		next := w.at(i + 1)
		if next.Type == TokenOperator && (next.Value == "::" || next.Value == ":::") {
			w.packages[t.Value] = struct{}{}
			return
		}
		if next.Type == TokenLParen {
			w.inspectCall(i)
			return
		}
	}

	if !w.isAssignment(w.at(i + 1)) {
		return
	}
	rhs := i + 2
	// Allow R6::R6Class(...) on the right-hand side.
	if w.at(rhs).Is(TokenIdentifier, "R6") && w.at(rhs+1).Is(TokenOperator, "::") {
		rhs += 2
	}
	switch {
	case w.at(rhs).Is(TokenIdentifier, "function") && w.at(rhs+1).Type == TokenLParen:
		w.add(DefinitionFunction, t, w.formals(rhs+1))
	case w.at(rhs).Is(TokenIdentifier, "R6Class") && w.at(rhs+1).Type == TokenLParen:
		w.add(DefinitionClass, t, nil)
	}
}

// inspectCall handles setGeneric/setMethod/setClass and package loaders.
// i is the index of the callee identifier; i+1 is its open paren.
func (w *walker) inspectCall(i int) {
	callee := w.toks[i].Value
	arg := i + 2
	// Skip a leading named argument: setClass(Class = "Foo"), library(package = x).
	if w.at(arg).Type == TokenIdentifier && w.at(arg+1).Is(TokenOperator, "=") {
		arg += 2
	}
	first := w.at(arg)

	switch {
	case packageLoaders[callee]:
		if first.Type != TokenIdentifier && first.Type != TokenString {
			return
		}
		// With character.only the identifier is a variable holding the name.
		if first.Type == TokenIdentifier && w.characterOnly(i+1) {
			return
		}
		if after := w.at(arg + 1); after.Type == TokenRParen || after.Type == TokenComma {
			if first.Value != "" {
				w.packages[first.Value] = struct{}{}
			}
		}

	case callee == "setGeneric" && first.Type == TokenString:
		w.add(DefinitionFunction, first, nil)

	case callee == "setMethod" && first.Type == TokenString:
		var sig []Param
		if w.at(arg + 1).Type == TokenComma {
			sig = w.methodSignature(arg + 2)
		}
		w.add(DefinitionMethod, first, sig)

	case classConstructors[callee] && first.Type == TokenString:
		w.add(DefinitionClass, first, nil)
	}
}

func (w *walker) add(kind DefinitionKind, name Token, sig []Param) {
	if name.Value == "" {
		return
	}
	w.defs = append(w.defs, Definition{
		Kind:       kind,
		Name:       name.Value,
		Signature:  sig,
		BraceLevel: w.braceLevel,
		Line:       name.Line,
		Column:     name.Column,
	})
}

// characterOnly reports whether the call whose open paren is at open passes
// character.only with a value other than FALSE or F.
func (w *walker) characterOnly(open int) bool {
	depth := 0
	for j := open; j < len(w.toks); j++ {
		t := w.toks[j]
		switch t.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
			continue
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
			if depth == 0 {
				return false
			}
			continue
		}
		if depth == 1 && t.Is(TokenIdentifier, "character.only") && w.at(j+1).Is(TokenOperator, "=") {
			v := w.at(j + 2)
			return !v.Is(TokenIdentifier, "FALSE") && !v.Is(TokenIdentifier, "F")
		}
	}
	return false
}

// formals collects parameter names from the parenthesised list starting at
// the open paren index.
func (w *walker) formals(open int) []Param {
	var params []Param
	depth := 0
	expectName := true
	for j := open; j < len(w.toks); j++ {
		t := w.toks[j]
		switch t.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
			continue
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
			if depth == 0 {
				return params
			}
			continue
		}
		if depth != 1 {
			continue
		}
		if t.Type == TokenComma {
			expectName = true
			continue
		}
		if expectName && t.Type == TokenIdentifier {
			params = append(params, Param{Name: t.Value})
		}
		expectName = false
	}
	return params
}

// methodSignature parses the second argument of setMethod, which may be a
// bare class string, signature(...), or c(...).
func (w *walker) methodSignature(j int) []Param {
	if w.at(j).Is(TokenIdentifier, "signature") && w.at(j+1).Is(TokenOperator, "=") {
		j += 2
	}
	t := w.at(j)
	if t.Type == TokenString {
		return []Param{{Type: t.Value}}
	}
	if t.Type != TokenIdentifier || (t.Value != "signature" && t.Value != "c") || w.at(j+1).Type != TokenLParen {
		return nil
	}

	var params []Param
	for k := j + 2; k < len(w.toks); {
		cur := w.at(k)
		switch {
		case cur.Type == TokenRParen:
			return params
		case cur.Type == TokenComma:
			k++
		case (cur.Type == TokenIdentifier || cur.Type == TokenString) &&
			w.at(k+1).Is(TokenOperator, "=") && w.at(k+2).Type == TokenString:
			params = append(params, Param{Name: cur.Value, Type: w.at(k + 2).Value})
			k += 3
		case cur.Type == TokenString:
			params = append(params, Param{Type: cur.Value})
			k++
		default:
			// Anything else (nested calls, variables) ends the signature.
			return params
		}
	}
	return params
}
