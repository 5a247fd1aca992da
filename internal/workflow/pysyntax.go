package workflow

import (
	"fmt"
	"strings"
)

// CheckPython performs a structural syntax check of Python source: string
// literals, bracket nesting, line continuations, block headers and
// indentation, plus adjacent operands such as `print x`. The baseline is the
// Python 3.12 grammar, including nested quotes inside f-string replacement
// fields. It does not build an AST, so valid-looking nonsense can still pass.
func CheckPython(code string) error {
	lines, err := pyLogicalLines(strings.ReplaceAll(code, "\r\n", "\n"))
	if err != nil {
		return err
	}
	return pyCheckBlocks(lines)
}

type pyLine struct {
	lineno int
	indent string
	text   string
}

type pyBracket struct {
	ch   byte
	line int
}

var pyClosing = map[byte]byte{'(': ')', '[': ']', '{': '}'}

func pySyntaxErr(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// pyLogicalLines joins physical lines the way the tokenizer does. String
// literals are collapsed to "" and comments are dropped.
func pyLogicalLines(src string) ([]pyLine, error) {
	var (
		lines  []pyLine
		stack  []pyBracket
		buf    strings.Builder
		cur    *pyLine
		lineno = 1
	)

	i := 0
	for i < len(src) {
		if cur == nil {
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\f') {
				j++
			}
			if j == len(src) {
				break
			}
			switch src[j] {
			case '\n':
				lineno++
				i = j + 1
				continue
			case '#':
				for j < len(src) && src[j] != '\n' {
					j++
				}
				i = j
				continue
			}
			cur = &pyLine{lineno: lineno, indent: src[i:j]}
			buf.Reset()
			i = j
			continue
		}

		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '\\':
			if i+1 < len(src) && src[i+1] == '\n' {
				buf.WriteByte(' ')
				lineno++
				i += 2
				continue
			}
			if i+1 == len(src) {
				return nil, pySyntaxErr(lineno, "unexpected EOF while parsing")
			}
			return nil, pySyntaxErr(lineno, "unexpected character after line continuation character")
		case c == '\'' || c == '"':
			end, endLine, err := pyScanString(src, i, lineno)
			if err != nil {
				return nil, err
			}
			trimStringPrefix(&buf)
			buf.WriteString(`""`)
			lineno = endLine
			i = end
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, pyBracket{ch: c, line: lineno})
			buf.WriteByte(c)
			i++
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				return nil, pySyntaxErr(lineno, "unmatched '%c'", c)
			}
			open := stack[len(stack)-1]
			if pyClosing[open.ch] != c {
				if open.line != lineno {
					return nil, pySyntaxErr(lineno, "closing parenthesis '%c' does not match opening parenthesis '%c' on line %d", c, open.ch, open.line)
				}
				return nil, pySyntaxErr(lineno, "closing parenthesis '%c' does not match opening parenthesis '%c'", c, open.ch)
			}
			stack = stack[:len(stack)-1]
			buf.WriteByte(c)
			i++
		case c == '\n':
			lineno++
			i++
			if len(stack) > 0 {
				buf.WriteByte(' ')
				continue
			}
			cur.text = strings.TrimSpace(buf.String())
			lines = append(lines, *cur)
			cur = nil
		default:
			buf.WriteByte(c)
			i++
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, pySyntaxErr(open.line, "'%c' was never closed", open.ch)
	}
	if cur != nil {
		cur.text = strings.TrimSpace(buf.String())
		lines = append(lines, *cur)
	}
	return lines, nil
}

// pyScanString returns the offset just past the literal starting at src[i]
// and the line number it ends on. Replacement fields of f-strings are
// scanned as code, so they may nest quotes and span lines as in 3.12.
func pyScanString(src string, i, lineno int) (int, int, error) {
	start := lineno
	delim := src[i : i+1]
	if strings.HasPrefix(src[i:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	triple := len(delim) == 3
	format := isFormatPrefix(src, i)

	var fields []pyField
	j := i + len(delim)
	for j < len(src) {
		c := src[j]
		if n := len(fields); n > 0 && !fields[n-1].spec {
			f := &fields[n-1]
			switch c {
			case '\\':
				j += 2
				continue
			case '\n':
				lineno++
			case '\'', '"':
				end, endLine, err := pyScanString(src, j, lineno)
				if err != nil {
					return 0, 0, err
				}
				j, lineno = end, endLine
				continue
			case '(', '[', '{':
				f.depth++
			case ')', ']':
				f.depth--
			case '}':
				if f.depth > 0 {
					f.depth--
				} else {
					fields = fields[:n-1]
				}
			case ':':
				if f.depth == 0 && !strings.HasPrefix(src[j:], ":=") {
					f.spec = true
				}
			}
			j++
			continue
		}

		switch {
		case c == '\\':
			if j+1 < len(src) && src[j+1] == '\n' {
				lineno++
			}
			j += 2
			continue
		case c == '\n':
			if !triple && len(fields) == 0 {
				return 0, 0, pySyntaxErr(start, "unterminated string literal (detected at line %d)", start)
			}
			lineno++
		case format && c == '{':
			if len(fields) == 0 && strings.HasPrefix(src[j:], "{{") {
				j += 2
				continue
			}
			fields = append(fields, pyField{})
		case format && c == '}':
			if len(fields) > 0 {
				fields = fields[:len(fields)-1]
			} else if strings.HasPrefix(src[j:], "}}") {
				j += 2
				continue
			}
		case len(fields) == 0 && strings.HasPrefix(src[j:], delim):
			return j + len(delim), lineno, nil
		}
		j++
	}
	if triple {
		last := lineno
		if strings.HasSuffix(src, "\n") {
			last--
		}
		return 0, 0, pySyntaxErr(start, "unterminated triple-quoted string literal (detected at line %d)", last)
	}
	return 0, 0, pySyntaxErr(start, "unterminated string literal (detected at line %d)", start)
}

// pyField is an open replacement field of an f-string. depth counts brackets
// opened inside its expression; spec is set once the format spec begins.
type pyField struct {
	depth int
	spec  bool
}

// isFormatPrefix reports whether the quote at src[i] opens an f-string.
func isFormatPrefix(src string, i int) bool {
	n := 0
	for n < 2 && i-1-n >= 0 && isIdentByte(src[i-1-n]) {
		n++
	}
	if n == 0 || (i-1-n >= 0 && isIdentByte(src[i-1-n])) {
		return false
	}
	switch strings.ToLower(src[i-n : i]) {
	case "f", "fr", "rf":
		return true
	}
	return false
}

// trimStringPrefix drops an r/b/f/u style prefix that the scanner copied
// into buf just before a quote.
func trimStringPrefix(buf *strings.Builder) {
	s := buf.String()
	n := 0
	for n < len(s) && n < 2 && isIdentByte(s[len(s)-1-n]) {
		n++
	}
	if n == 0 {
		return
	}
	if len(s) > n && isIdentByte(s[len(s)-1-n]) {
		return
	}
	switch strings.ToLower(s[len(s)-n:]) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		buf.Reset()
		buf.WriteString(s[:len(s)-n])
	}
}

var pyBlockKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"def": true, "class": true, "with": true, "try": true, "except": true,
	"finally": true, "async": true,
}

var pyKeywords = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

// Soft keywords only count at the start of a statement.
var pySoftKeywords = map[string]bool{"match": true, "case": true, "type": true}

func pyCheckBlocks(lines []pyLine) error {
	indents := []int{0}
	var header *pyLine
	var headerWord string

	for idx := range lines {
		ln := lines[idx]
		width := indentWidth(ln.indent)
		top := indents[len(indents)-1]

		switch {
		case header != nil:
			if width <= top {
				return pySyntaxErr(ln.lineno, "expected an indented block after '%s' statement on line %d", headerWord, header.lineno)
			}
			indents = append(indents, width)
		case width > top:
			return pySyntaxErr(ln.lineno, "unexpected indent")
		case width < top:
			for len(indents) > 1 && indents[len(indents)-1] > width {
				indents = indents[:len(indents)-1]
			}
			if indents[len(indents)-1] != width {
				return pySyntaxErr(ln.lineno, "unindent does not match any outer indentation level")
			}
		}
		header = nil

		if err := pyCheckOperands(ln); err != nil {
			return err
		}

		word := leadingWord(ln.text)
		if word == "async" {
			word = leadingWord(strings.TrimSpace(ln.text[len("async"):]))
		}
		if !pyBlockKeywords[word] && !(pySoftKeywords[word] && strings.HasSuffix(ln.text, ":")) {
			continue
		}
		colon := topLevelColon(ln.text)
		if colon < 0 {
			return pySyntaxErr(ln.lineno, "expected ':'")
		}
		if colon == len(ln.text)-1 {
			header = &lines[idx]
			headerWord = word
		}
	}

	if header != nil {
		return pySyntaxErr(header.lineno+1, "expected an indented block after '%s' statement on line %d", headerWord, header.lineno)
	}
	return nil
}

// pyCheckOperands rejects two operands with nothing between them, the most
// common shape of prose or Python 2 code leaking into a reply.
func pyCheckOperands(ln pyLine) error {
	prevOperand := false
	prevWord := ""
	first := true
	text := ln.text
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
			continue
		case isIdentStart(c) || c >= 0x80:
			j := i
			for j < len(text) && (isIdentByte(text[j]) || text[j] >= 0x80) {
				j++
			}
			word := text[i:j]
			keyword := pyKeywords[word] || (first && pySoftKeywords[word])
			if prevOperand && !keyword && !pyKeywords[prevWord] {
				return pySyntaxErr(ln.lineno, "invalid syntax")
			}
			prevOperand = !keyword
			prevWord = word
			i = j
		case c >= '0' && c <= '9' || (c == '.' && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9'):
			j := pyNumberEnd(text, i)
			if prevOperand && !pyKeywords[prevWord] {
				return pySyntaxErr(ln.lineno, "invalid syntax")
			}
			prevOperand = true
			prevWord = ""
			i = j
		case c == '"':
			// Collapsed literal; adjacent literals concatenate.
			if prevOperand && prevWord != "" && !pyKeywords[prevWord] {
				return pySyntaxErr(ln.lineno, "invalid syntax")
			}
			prevOperand = true
			prevWord = ""
			i += 2
			first = false
			continue
		default:
			prevOperand = false
			prevWord = ""
			i++
		}
		first = false
	}
	return nil
}

// pyNumberEnd returns the offset just past the numeric literal at text[i].
// A keyword may follow with no space, as in `1if x else 2`.
func pyNumberEnd(text string, i int) int {
	j := i
	if text[j] == '0' && j+1 < len(text) && strings.IndexByte("xXoObB", text[j+1]) >= 0 {
		j += 2
		for j < len(text) && (isHexByte(text[j]) || text[j] == '_') {
			j++
		}
		return j
	}
	for j < len(text) && (text[j] >= '0' && text[j] <= '9' || text[j] == '_' || text[j] == '.') {
		j++
	}
	if j < len(text) && (text[j] == 'e' || text[j] == 'E') {
		k := j + 1
		if k < len(text) && (text[k] == '+' || text[k] == '-') {
			k++
		}
		if k < len(text) && text[k] >= '0' && text[k] <= '9' {
			j = k
			for j < len(text) && (text[j] >= '0' && text[j] <= '9' || text[j] == '_') {
				j++
			}
		}
	}
	if j < len(text) && (text[j] == 'j' || text[j] == 'J') {
		j++
	}
	return j
}

func isHexByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func topLevelColon(text string) int {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 && !(i+1 < len(text) && text[i+1] == '=') {
				return i
			}
		}
	}
	return -1
}

func leadingWord(text string) string {
	j := 0
	for j < len(text) && isIdentByte(text[j]) {
		j++
	}
	return text[:j]
}

func indentWidth(indent string) int {
	w := 0
	for i := 0; i < len(indent); i++ {
		if indent[i] == '\t' {
			w = (w/8 + 1) * 8
			continue
		}
		w++
	}
	return w
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
