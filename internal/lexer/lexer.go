// Package lexer implements C2: a byte-stream-to-token-stream lexer with
// precise positions, literal/escape/interpolation handling, and Unicode
// safety rejection (spec.md §4.2). The state-machine shape (current rune,
// read position, peek-then-decide on multi-char operators) is grounded on
// _examples/funvibe-funxy/internal/lexer/lexer.go.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/token"
)

// intSuffixes and floatSuffixes are the legal literal suffixes (spec.md
// §4.2 "Literal rules").
var intSuffixes = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
}

var floatSuffixes = map[string]bool{"f16": true, "f32": true, "f64": true}

// escapeSet lists every recognized escape for the unrecognized-escape
// diagnostic's "lists all possible escapes" requirement.
const escapeSet = `\n \r \t \b \f \v \0 \\ \' \" \u{H+} \$`

// Lexer converts a source buffer into a Token stream.
type Lexer struct {
	fileID       int
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int

	bag *diagnostics.Bag

	// interpStack tracks the position of each currently-open `${` so that an
	// unterminated interpolation is reported against its opener (spec.md
	// §4.2 "the lexer tracks the string start and interpolation position
	// stack").
	interpStack []token.Position

	pending []token.Token // lookahead buffer for LookAhead
}

// New constructs a Lexer over input, reporting diagnostics into bag.
func New(fileID int, input string, bag *diagnostics.Bag) *Lexer {
	l := &Lexer{fileID: fileID, input: input, line: 1, column: 0, bag: bag}
	l.readChar()
	return l
}

func (l *Lexer) pos() token.Position {
	return token.Position{FileID: l.fileID, Line: l.line, Column: l.column}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func newTok(k token.Kind, ch rune, begin, end token.Position) token.Token {
	lex := string(ch)
	return token.Token{Kind: k, Lexeme: lex, Literal: lex, Begin: begin, End: end}
}

// Next returns the next token in the stream.
func (l *Lexer) Next() token.Token {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}
	return l.scan()
}

// LookAhead returns the next k tokens without consuming them from the
// logical stream. When skipNewlines is true, NEWLINE tokens are skipped
// when filling the lookahead (spec.md §4.2).
func (l *Lexer) LookAhead(k int, skipNewlines bool) []token.Token {
	var out []token.Token
	for i := 0; len(out) < k; i++ {
		if i >= len(l.pending) {
			l.pending = append(l.pending, l.scan())
		}
		t := l.pending[i]
		if skipNewlines && t.Kind == token.NEWLINE {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (l *Lexer) scan() token.Token {
	l.skipWhitespace()
	begin := l.pos()

	if l.ch == 0 {
		return token.Token{Kind: token.EOF, Begin: begin, End: begin}
	}

	switch {
	case l.ch == '\n':
		tok := newTok(token.NEWLINE, l.ch, begin, l.pos())
		l.readChar()
		return tok
	case l.ch == '/' && l.peekChar() == '/':
		return l.readLineComment(begin)
	case l.ch == '/' && l.peekChar() == '*':
		return l.readBlockComment(begin)
	case isDigit(l.ch):
		return l.readNumber(begin)
	case isIdentStart(l.ch):
		return l.readIdentifier(begin)
	case l.ch == '"':
		return l.readStringToken(begin)
	case l.ch == '\'':
		return l.readRuneLiteral(begin)
	}

	tok, ok := l.readOperator(begin)
	if !ok {
		l.reportUnsafeOrIllegal(begin)
		tok = newTok(token.ILLEGAL, l.ch, begin, l.pos())
		l.readChar()
	}
	return tok
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}
func isIdentCont(r rune) bool { return isIdentStart(r) || isDigit(r) }

func (l *Lexer) readLineComment(begin token.Position) token.Token {
	var sb strings.Builder
	for l.ch != '\n' && l.ch != 0 {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return token.Token{Kind: token.ILLEGAL, Lexeme: sb.String(), Literal: "comment", Begin: begin, End: l.pos()}
}

func (l *Lexer) readBlockComment(begin token.Position) token.Token {
	l.readChar() // consume '*'
	l.readChar()
	var sb strings.Builder
	for !(l.ch == '*' && l.peekChar() == '/') && l.ch != 0 {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch != 0 {
		l.readChar()
		l.readChar()
	}
	return token.Token{Kind: token.ILLEGAL, Lexeme: sb.String(), Literal: "comment", Begin: begin, End: l.pos()}
}

func (l *Lexer) readIdentifier(begin token.Position) token.Token {
	var sb strings.Builder
	for isIdentCont(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	name := sb.String()
	if name == "_" {
		return token.Token{Kind: token.WILDCARD, Lexeme: name, Literal: name, Begin: begin, End: l.pos()}
	}
	kind := token.LookupIdent(name)
	return token.Token{Kind: kind, Lexeme: name, Literal: name, Begin: begin, End: l.pos()}
}

func (l *Lexer) readNumber(begin token.Position) token.Token {
	var sb strings.Builder
	base := 10
	literalKind := "decimal"
	if l.ch == '0' && (l.peekChar() == 'b' || l.peekChar() == 'B') {
		sb.WriteRune(l.ch)
		l.readChar()
		sb.WriteRune(l.ch)
		l.readChar()
		base, literalKind = 2, "binary"
	} else if l.ch == '0' && (l.peekChar() == 'o' || l.peekChar() == 'O') {
		sb.WriteRune(l.ch)
		l.readChar()
		sb.WriteRune(l.ch)
		l.readChar()
		base, literalKind = 8, "octal"
	} else if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		sb.WriteRune(l.ch)
		l.readChar()
		sb.WriteRune(l.ch)
		l.readChar()
		base, literalKind = 16, "hex"
	}

	isValidDigit := func(r rune) bool {
		switch base {
		case 2:
			return r == '0' || r == '1'
		case 8:
			return r >= '0' && r <= '7'
		case 16:
			return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		default:
			return isDigit(r)
		}
	}

	for isValidDigit(l.ch) || l.ch == '_' {
		sb.WriteRune(l.ch)
		l.readChar()
	}

	isFloat := false
	// decimal point permitted only for decimal and hex (per spec.md §4.2)
	if l.ch == '.' && (base == 10 || base == 16) && isDigit(l.peekChar()) {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		for isValidDigit(l.ch) || l.ch == '_' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	// exponent: 'e' only for decimal, 'p' only for hex-float
	if base == 10 && (l.ch == 'e' || l.ch == 'E') {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	} else if base == 16 && isFloat && (l.ch == 'p' || l.ch == 'P') {
		sb.WriteRune(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}

	// suffix
	var suffix strings.Builder
	for isIdentCont(l.ch) {
		suffix.WriteRune(l.ch)
		l.readChar()
	}
	suf := suffix.String()

	kind := token.INT
	if isFloat {
		kind = token.FLOAT
	}
	end := l.pos()
	lex := sb.String()
	tok := token.Token{Kind: kind, Lexeme: lex + suf, Literal: lex, LiteralKind: literalKind, Begin: begin, End: end}

	if suf != "" {
		validSuffixSet := intSuffixes
		if isFloat {
			validSuffixSet = floatSuffixes
		}
		if !validSuffixSet[suf] {
			rng := token.Range{Begin: begin, End: end}
			l.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrL003IllegalIntSuffix, rng,
				fmt.Sprintf("illegal literal suffix %q", suf)).
				WithNote(fmt.Sprintf("offending range covers %q", suf)))
		} else {
			tok.LiteralKind = suf
		}
	}
	return tok
}

// readEscape reports the kind of escape consumed, or "" on an unrecognized
// escape (in which case it emits lex_unrecognized_escape). byteString
// disables `\$` (spec.md §4.2).
func (l *Lexer) readEscape(byteString bool) string {
	start := l.pos()
	l.readChar() // consume backslash
	switch l.ch {
	case 'n', 'r', 't', 'b', 'f', 'v', '0', '\\', '\'', '"':
		r := l.ch
		l.readChar()
		return string(r)
	case '$':
		if byteString {
			break
		}
		l.readChar()
		return "$"
	case 'u':
		l.readChar()
		if l.ch == '{' {
			l.readChar()
			var hex strings.Builder
			for l.ch != '}' && l.ch != 0 {
				hex.WriteRune(l.ch)
				l.readChar()
			}
			if l.ch == '}' {
				l.readChar()
			}
			return "\\u{" + hex.String() + "}"
		}
	}
	l.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrL002UnrecognizedEscape,
		token.Range{Begin: start, End: l.pos()},
		fmt.Sprintf("unrecognized escape sequence; valid escapes are %s", escapeSet)))
	return ""
}

// readStringWithInterpolation reads a double-quoted string literal, which may
// span lines; raw, byte-string and triple-quoted forms are not recognised.
// Interpolation `${...}` is tracked via interpStack so an
// unterminated interpolation is reported against its opener.
func (l *Lexer) readStringWithInterpolation() (string, bool) {
	hasInterp := false
	var sb strings.Builder
	l.readChar() // consume opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			sb.WriteString(l.readEscape(false))
			continue
		}
		if l.ch == '$' && l.peekChar() == '{' {
			hasInterp = true
			l.interpStack = append(l.interpStack, l.pos())
			depth := 1
			sb.WriteString("${")
			l.readChar()
			l.readChar()
			for depth > 0 && l.ch != 0 {
				if l.ch == '{' {
					depth++
				} else if l.ch == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				sb.WriteRune(l.ch)
				l.readChar()
			}
			if l.ch == '}' {
				sb.WriteRune('}')
				l.readChar()
				l.interpStack = l.interpStack[:len(l.interpStack)-1]
			} else {
				opener := l.interpStack[len(l.interpStack)-1]
				l.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrL005UnterminatedInterp,
					token.Range{Begin: opener, End: l.pos()},
					"unterminated string interpolation"))
			}
			continue
		}
		r := l.ch
		l.assertUnicodeSafe(r)
		sb.WriteRune(r)
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar()
	} else {
		l.bag.Add(diagnostics.NewError(diagnostics.ErrL001UnterminatedString, token.Token{Begin: l.pos(), End: l.pos()}, "unterminated string literal"))
	}
	return sb.String(), hasInterp
}

func (l *Lexer) readString() string {
	s, _ := l.readStringWithInterpolation()
	return s
}

func (l *Lexer) readStringToken(begin token.Position) token.Token {
	content, hasInterp := l.readStringWithInterpolation()
	kind := token.STRING
	if hasInterp {
		kind = token.INTERP_STRING
	}
	return token.Token{Kind: kind, Lexeme: fmt.Sprintf("%q", content), Literal: content, Begin: begin, End: l.pos()}
}

func (l *Lexer) readRuneLiteral(begin token.Position) token.Token {
	l.readChar() // consume opening '
	var val string
	if l.ch == '\\' {
		val = l.readEscape(false)
	} else {
		val = string(l.ch)
		l.readChar()
	}
	if l.ch == '\'' {
		l.readChar()
	}
	return token.Token{Kind: token.RUNE, Lexeme: "'" + val + "'", Literal: val, Begin: begin, End: l.pos()}
}

// assertUnicodeSafe rejects the code point categories listed in spec.md
// §4.2 "Unicode safety" with lex_unsecure_unicode.
func (l *Lexer) assertUnicodeSafe(r rune) {
	if isUnsafeUnicode(r) {
		begin := l.pos()
		end := token.Position{FileID: begin.FileID, Line: begin.Line, Column: begin.Column + 1}
		l.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrL004UnsecureUnicode,
			token.Range{Begin: begin, End: end},
			fmt.Sprintf("source contains unsafe Unicode code point U+%04X", r)))
	}
}

func isUnsafeUnicode(r rune) bool {
	switch {
	case r >= 0x2400 && r <= 0x243F: // control pictures
		return true
	case r >= 0xE000 && r <= 0xF8FF, r >= 0xF0000 && r <= 0xFFFFD, r >= 0x100000 && r <= 0x10FFFD: // private use
		return true
	case r >= 0xFFF0 && r <= 0xFFFF: // specials
		return true
	case r >= 0xE0000 && r <= 0xE007F: // tag characters
		return true
	case r == 0x202A || r == 0x202B || r == 0x202C || r == 0x202D || r == 0x202E || (r >= 0x2066 && r <= 0x2069): // bidi overrides
		return true
	case r >= 0xFFF9 && r <= 0xFFFB: // interlinear annotation
		return true
	case r == 0x0F35 || r == 0x0F37 || r == 0x1CED: // Brahmi/Tibetan viramas (representative subset)
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	case r >= 0x1D100 && r <= 0x1D1FF, r >= 0x1D200 && r <= 0x1D24F: // musical/shorthand notation
		return true
	case r >= 0x2FF0 && r <= 0x2FFB: // ideographic description characters
		return true
	}
	return false
}

func (l *Lexer) reportUnsafeOrIllegal(begin token.Position) {
	if isUnsafeUnicode(l.ch) {
		l.assertUnicodeSafe(l.ch)
	}
}

func (l *Lexer) readOperator(begin token.Position) (token.Token, bool) {
	ch := l.ch
	two := func(next rune, k token.Kind, lex string) (token.Token, bool) {
		l.readChar()
		l.readChar()
		return token.Token{Kind: k, Lexeme: lex, Literal: lex, Begin: begin, End: l.pos()}, true
	}
	single := func(k token.Kind) (token.Token, bool) {
		l.readChar()
		return newTok(k, ch, begin, l.pos()), true
	}
	switch ch {
	case '=':
		if l.peekChar() == '=' {
			return two('=', token.EQ, "==")
		}
		if l.peekChar() == '>' {
			return two('>', token.ARROW, "=>")
		}
		return single(token.ASSIGN)
	case '+':
		if l.peekChar() == '=' {
			return two('=', token.PLUS_ASSIGN, "+=")
		}
		return single(token.PLUS)
	case '-':
		if l.peekChar() == '>' {
			return two('>', token.ARROW, "->")
		}
		if l.peekChar() == '=' {
			return two('=', token.MINUS_ASSIGN, "-=")
		}
		return single(token.MINUS)
	case '*':
		if l.peekChar() == '*' {
			return two('*', token.POWER, "**")
		}
		if l.peekChar() == '=' {
			return two('=', token.ASTERISK_ASSIGN, "*=")
		}
		return single(token.ASTERISK)
	case '/':
		if l.peekChar() == '=' {
			return two('=', token.SLASH_ASSIGN, "/=")
		}
		return single(token.SLASH)
	case '%':
		if l.peekChar() == '{' {
			return two('{', token.PERCENT_LBRACE, "%{")
		}
		if l.peekChar() == '=' {
			return two('=', token.PERCENT_ASSIGN, "%=")
		}
		return single(token.PERCENT)
	case '!':
		if l.peekChar() == '=' {
			return two('=', token.NOT_EQ, "!=")
		}
		return single(token.BANG)
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			if l.peekChar() == '.' {
				return two('.', token.ELLIPSIS, "...")
			}
			if l.peekChar() == '=' {
				return two('=', token.DOT_DOT_EQ, "..=")
			}
			l.readChar()
			return token.Token{Kind: token.DOT_DOT, Lexeme: "..", Literal: "..", Begin: begin, End: l.pos()}, true
		}
		return single(token.DOT)
	case '<':
		if l.peekChar() == '=' {
			return two('=', token.LTE, "<=")
		}
		if l.peekChar() == '<' {
			return two('<', token.LSHIFT, "<<")
		}
		return single(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return two('=', token.GTE, ">=")
		}
		if l.peekChar() == '>' {
			return two('>', token.RSHIFT, ">>")
		}
		return single(token.GT)
	case '(':
		return single(token.LPAREN)
	case ')':
		return single(token.RPAREN)
	case '{':
		return single(token.LBRACE)
	case '}':
		return single(token.RBRACE)
	case '[':
		return single(token.LBRACKET)
	case ']':
		return single(token.RBRACKET)
	case ',':
		return single(token.COMMA)
	case ':':
		if l.peekChar() == '-' {
			return two('-', token.COLON_MINUS, ":-")
		}
		return single(token.COLON)
	case ';':
		return single(token.SEMICOLON)
	case '@':
		return single(token.AT)
	case '&':
		if l.peekChar() == '&' {
			return two('&', token.AND, "&&")
		}
		return single(token.AMPERSAND)
	case '|':
		if l.peekChar() == '|' {
			return two('|', token.OR, "||")
		}
		return single(token.PIPE)
	case '^':
		return single(token.CARET)
	case '~':
		return single(token.TILDE)
	case '?':
		if l.peekChar() == '?' {
			return two('?', token.NULL_COALESCE, "??")
		}
		if l.peekChar() == '.' {
			return two('.', token.OPTIONAL_CHAIN, "?.")
		}
		if l.peekChar() == '[' {
			return two('[', token.OPTIONAL_INDEX, "?[")
		}
		if l.peekChar() == '(' {
			return two('(', token.OPTIONAL_CALL, "?(")
		}
		return single(token.QUESTION)
	case '\\':
		return single(token.BACKSLASH)
	}
	return token.Token{}, false
}

// DisplayWidth returns the terminal-column width of text for diagnostic
// formatting (spec.md §4.2): East-Asian wide = 2, combining = 0, control
// characters render as an 8-wide `\u{...}` escape, tab = 4, others = 1. It
// never throws on invalid UTF-8 — it falls back to the byte length.
func DisplayWidth(text string) int {
	if !utf8.ValidString(text) {
		return len(text)
	}
	width := 0
	for _, r := range text {
		width += runeWidth(r)
	}
	return width
}

func runeWidth(r rune) int {
	switch {
	case r == '\t':
		return 4
	case r < 0x20 || r == 0x7f:
		return 8 // rendered as \u{...}
	case isCombining(r):
		return 0
	case isEastAsianWide(r):
		return 2
	default:
		return 1
	}
}

// isCombining reports whether r is a combining mark (stdlib unicode range
// tables; no pack library specializes in grapheme/combining classification
// beyond what x/text/width already covers for East Asian width).
func isCombining(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me)
}

// isEastAsianWide classifies r using golang.org/x/text/width's East Asian
// Width property (UAX #11): Wide and Fullwidth render as two terminal cells.
func isEastAsianWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	default:
		return false
	}
}

// ParsedInt parses an integer literal token's value, stripping separators.
func ParsedInt(lit, literalKind string) (int64, error) {
	s := strings.ReplaceAll(lit, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0O"):
		base, s = 8, s[2:]
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	}
	return strconv.ParseInt(s, base, 64)
}
