package lsp

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"kiln/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into SemanticTokenTypes
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

const (
	tokenNamespace = iota
	tokenType
	tokenTypeParameter
	tokenFunction
	tokenVariable
	tokenParameter
	tokenProperty
	tokenKeyword
	tokenNumber
	tokenOperator
	tokenModifier
)

const modDeclaration = 1 << 0

var keywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`function constructor modifier fallback receive
		public nonpayable params returns phis true false ty
		call static builtin host return branch branchcond switch case default
		load set clear storage slot assert failure print unreachable nop
		arg undefined cast zext sext trunc bytescast overflowing
		signed unsigned divide modulo more less`) {
		keywords[kw] = true
	}
}

var graphKinds = map[string]bool{
	"function":    true,
	"constructor": true,
	"modifier":    true,
	"fallback":    true,
	"receive":     true,
	"::":          true,
}

// collectSemanticTokens classifies the tokens of a graph text. Lexing stops
// at the first character the lexer rejects; everything before it is still
// highlighted.
func collectSemanticTokens(filename, text string) []SemanticToken {
	toks := lexTokens(filename, text)
	symbols := grammar.CFGLexer.Symbols()

	var tokens []SemanticToken
	for i, tok := range toks {
		kind, mods, ok := classify(toks, i, symbols)
		if !ok {
			continue
		}
		tokens = append(tokens, SemanticToken{
			Line:           uint32(tok.Pos.Line - 1),
			StartChar:      uint32(tok.Pos.Column - 1),
			Length:         uint32(len(tok.Value)),
			TokenType:      kind,
			TokenModifiers: mods,
		})
	}
	return tokens
}

func lexTokens(filename, text string) []lexer.Token {
	lex, err := grammar.CFGLexer.Lex(filename, strings.NewReader(text))
	if err != nil {
		return nil
	}
	whitespace := grammar.CFGLexer.Symbols()["Whitespace"]

	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return toks
		}
		if tok.Type != whitespace {
			toks = append(toks, tok)
		}
	}
}

func classify(toks []lexer.Token, i int, symbols map[string]lexer.TokenType) (int, int, bool) {
	tok := toks[i]
	value := func(j int) string {
		if j < 0 {
			return ""
		}
		return toks[j].Value
	}
	isType := func(j int) bool {
		if j < 0 || toks[j].Type != symbols["Ident"] {
			return false
		}
		_, err := grammar.ParseType(toks[j].Value)
		return err == nil
	}

	switch tok.Type {
	case symbols["Var"]:
		if value(i-2) == ":" && value(i-3) == "ty" && isType(i-1) {
			return tokenVariable, modDeclaration, true
		}
		return tokenVariable, 0, true
	case symbols["Number"], symbols["Hex"]:
		return tokenNumber, 0, true
	case symbols["Operator"]:
		return tokenOperator, 0, true
	case symbols["Block"]:
		return tokenNamespace, 0, true
	case symbols["Selector"]:
		return tokenProperty, 0, true
	case symbols["Ident"]:
		switch {
		case graphKinds[value(i-1)] && !keywords[tok.Value]:
			return tokenFunction, modDeclaration, true
		case keywords[tok.Value]:
			return tokenKeyword, 0, true
		case isType(i):
			return tokenType, 0, true
		case isType(i - 1):
			return tokenParameter, modDeclaration, true
		}
		return tokenProperty, 0, true
	}
	return 0, 0, false
}

// encodeSemanticTokens packs tokens into the LSP wire format using
// delta-line, delta-start compression
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	var data []uint32
	var prevLine, prevStart uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}
	return data
}
