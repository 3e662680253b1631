package document

import (
	"strconv"
	"strings"
)

// Text in a content stream is shown by these operators:
//
//	BT ET          text object boundaries
//	Tf             select font
//	Tj ' "         show a string
//	TJ             show strings with individual glyph positioning
//	T* Td TD Tm    move to the next line or set the text matrix
//
// Strings decode through the ToUnicode CMap of the selected font when it has
// one. Otherwise simple fonts decode as WinAnsi (or MacRoman), and composite
// fonts, whose codes are glyph IDs, yield no text. Do draws form XObjects.

// kerningSpace is the TJ displacement, in thousandths of an em, treated as a word gap.
const kerningSpace = -200

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokArray
	tokKeyword
)

type token struct {
	kind  tokenKind
	num   float64
	str   []byte
	items []token
}

type lexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isSpace(c) {
			return
		}
		l.pos++
	}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

// regular reads a run of regular characters.
func (l *lexer) regular() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// next returns the next token. Array tokens carry their items.
// Dictionaries are flattened into their keys and values.
func (l *lexer) next() (token, bool) {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return token{}, false
		}

		switch c := l.data[l.pos]; c {
		case '(':
			return token{kind: tokString, str: l.literalString()}, true
		case '<':
			if l.peek(1) == '<' {
				l.pos += 2
				continue
			}
			return token{kind: tokString, str: l.hexString()}, true
		case '[':
			l.pos++
			return l.array(), true
		case '/':
			l.pos++
			return token{kind: tokName, str: l.regular()}, true
		case '>', ']', ')', '{', '}':
			l.pos++
			continue
		default:
			word := l.regular()
			if len(word) == 0 {
				l.pos++
				continue
			}
			if strings.ContainsRune("+-.0123456789", rune(word[0])) {
				if n, err := strconv.ParseFloat(string(word), 64); err == nil {
					return token{kind: tokNumber, num: n}, true
				}
			}
			return token{kind: tokKeyword, str: word}, true
		}
	}
}

func (l *lexer) array() token {
	arr := token{kind: tokArray}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return arr
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr
		}
		item, ok := l.next()
		if !ok {
			return arr
		}
		arr.items = append(arr.items, item)
	}
}

func (l *lexer) literalString() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.peek(0) == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
					v = v*8 + int(l.data[l.pos]-'0')
					l.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hexString() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage moves past binary inline image data up to the EI operator.
func (l *lexer) skipInlineImage() {
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			(l.pos == 0 || isSpace(l.data[l.pos-1])) &&
			(l.pos+2 >= len(l.data) || isSpace(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}

type textWriter struct {
	b    strings.Builder
	last byte
}

func (w *textWriter) newline() {
	if w.b.Len() > 0 && w.last != '\n' {
		w.b.WriteByte('\n')
		w.last = '\n'
	}
}

func (w *textWriter) space() {
	if w.b.Len() > 0 && w.last != ' ' && w.last != '\n' {
		w.b.WriteByte(' ')
		w.last = ' '
	}
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.last = s[len(s)-1]
}

// extractText returns the text shown by a decoded content stream, one line
// per text line. res may be nil, in which case strings decode as WinAnsi.
func extractText(content []byte, res resources) string {
	var out textWriter
	showText(&out, content, res, 0)
	return strings.TrimRight(out.b.String(), "\n ")
}

func showText(out *textWriter, content []byte, res resources, depth int) {
	lx := &lexer{data: content}
	var (
		operands []token
		font     *fontDecoder
		saved    []*fontDecoder
		lastY    float64
		haveY    bool
	)

	lastString := func() []byte {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				return operands[i].str
			}
		}
		return nil
	}
	lastName := func() (string, bool) {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokName {
				return string(operands[i].str), true
			}
		}
		return "", false
	}

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokKeyword {
			operands = append(operands, tok)
			continue
		}

		switch string(tok.str) {
		case "q":
			saved = append(saved, font)
		case "Q":
			if n := len(saved); n > 0 {
				font, saved = saved[n-1], saved[:n-1]
			}
		case "BT":
			out.newline()
			haveY = false
		case "Tf":
			if name, ok := lastName(); ok && res != nil {
				font = res.font(name)
			}
		case "Tj":
			out.write(decodeString(lastString(), font))
		case "'", "\"":
			out.newline()
			out.write(decodeString(lastString(), font))
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				for _, item := range operands[n-1].items {
					switch item.kind {
					case tokString:
						out.write(decodeString(item.str, font))
					case tokNumber:
						if item.num <= kerningSpace {
							out.space()
						}
					}
				}
			}
		case "T*":
			out.newline()
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == tokNumber && operands[n-1].num != 0 {
				out.newline()
			}
		case "Tm":
			if n := len(operands); n >= 6 && operands[n-1].kind == tokNumber {
				y := operands[n-1].num
				if haveY && y != lastY {
					out.newline()
				}
				lastY, haveY = y, true
			}
		case "Do":
			if name, ok := lastName(); ok && res != nil && depth < maxFormDepth {
				if data, formRes, ok := res.form(name); ok {
					out.newline()
					showText(out, data, formRes, depth+1)
					out.newline()
				}
			}
		case "ID":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
}

// decodeString maps raw string bytes shown with font to text.
func decodeString(raw []byte, font *fontDecoder) string {
	if len(raw) == 0 {
		return ""
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r < 0x20 || r == 0xFFFD:
			return -1
		}
		return r
	}, font.decode(raw))
}
