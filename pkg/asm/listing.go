package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/lexer"

	"vgtool/pkg/isa"
)

// A listing holds one instruction per line: a mnemonic followed by
// whitespace-separated operands. ';' starts a comment.
var listingLexer = lexer.Must(lexer.Regexp(`(?P<EOL>\n)|([ \t\r]+)|(;[^\n]*)|(?P<Word>[^\s;]+)`))

// ParseListing reads a textual listing into instructions.
func ParseListing(r io.Reader) ([]isa.Instruction, error) {
	lex, err := listingLexer.Lex(r)
	if err != nil {
		return nil, err
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}

	eol := listingLexer.Symbols()["EOL"]
	var (
		insts []isa.Instruction
		words []string
		line  int
	)
	flush := func() error {
		if len(words) == 0 {
			return nil
		}
		in, err := isa.ParseInstruction(words[0], words[1:])
		if err != nil {
			return fmt.Errorf("listing line %d: %w", line, err)
		}
		insts = append(insts, in)
		words = words[:0]
		return nil
	}

	for _, tok := range tokens {
		if tok.EOF() || tok.Type == eol {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(words) == 0 {
			line = tok.Pos.Line
		}
		words = append(words, tok.Value)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return insts, nil
}

// ParseListingString is ParseListing over a string.
func ParseListingString(src string) ([]isa.Instruction, error) {
	return ParseListing(strings.NewReader(src))
}

// WriteListing writes one instruction per line.
func WriteListing(w io.Writer, insts []isa.Instruction) error {
	for _, in := range insts {
		if _, err := fmt.Fprintln(w, in.String()); err != nil {
			return err
		}
	}
	return nil
}
