package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var CFGLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Header attributes that would otherwise split into several tokens
		{"Selector", `selector:[0-9a-fA-F]*`, nil},

		// Byte string literals
		{"Hex", `hex"[0-9a-fA-F]*"`, nil},

		// Block labels (order matters)
		{"Block", `block[0-9]+`, nil},

		// Variables and identifiers; generated names contain dots
		{"Var", `%[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},

		// Integer literals
		{"Number", `-?[0-9]+`, nil},

		// Operators
		{"Operator", `(\*\*|<<|>>|==|!=|<=|>=|&&|\|\||[-+*/%&|^<>!~=?])`, nil},

		// Punctuation (must come after operators)
		{"Punctuation", `(::|[#:,()])`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
