package workflow

import (
	"errors"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// SyntaxError locates the first syntax problem in generated code.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at line %d: %s", e.Line, e.Msg)
}

// Language describes a code generation target.
type Language struct {
	Name        string
	Display     string
	FenceTags   []string
	Extension   string
	ContentType string
	// Libraries and Forbidden are spliced into the code generation prompt.
	Libraries string
	Forbidden string
	// Check returns a *SyntaxError for code that does not parse.
	Check func(code string) error
}

// ArtifactName is the file name generated code is stored under.
func (l Language) ArtifactName() string {
	return "generated_code" + l.Extension
}

func (l Language) hasTag(tag string) bool {
	for _, t := range l.FenceTags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

var Python = Language{
	Name:        "python",
	Display:     "Python",
	FenceTags:   []string{"python", "py"},
	Extension:   ".py",
	ContentType: "text/x-python",
	Libraries:   "Use only standard library and common data science packages (pandas, numpy, matplotlib, seaborn)",
	Forbidden: "- Do NOT make network requests (no urllib, requests, http, socket)\n" +
		"- Do NOT access the filesystem except for the designated output directory\n" +
		"- Do NOT use subprocess, os.system, or eval/exec\n" +
		"- Do NOT import dangerous modules (pickle with untrusted data, etc.)",
	Check: CheckPython,
}

var Go = Language{
	Name:        "go",
	Display:     "Go",
	FenceTags:   []string{"go", "golang"},
	Extension:   ".go",
	ContentType: "text/x-go",
	Libraries:   "Use only the Go standard library; write a single main package",
	Forbidden: "- Do NOT make network requests (no net, net/http)\n" +
		"- Do NOT access the filesystem except for the designated output directory\n" +
		"- Do NOT use os/exec, syscall, unsafe or plugin\n" +
		"- Do NOT read environment variables or credentials",
	Check: CheckGo,
}

// LanguageByName resolves a CODEGEN_LANGUAGE value.
func LanguageByName(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "python", "py":
		return Python, nil
	case "go", "golang":
		return Go, nil
	}
	return Language{}, fmt.Errorf("workflow: unsupported language %q", name)
}

// CheckGo parses code as a complete Go source file.
func CheckGo(code string) error {
	_, err := parser.ParseFile(token.NewFileSet(), "generated.go", code, parser.AllErrors)
	if err == nil {
		return nil
	}
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return &SyntaxError{Line: list[0].Pos.Line, Msg: list[0].Msg}
	}
	return &SyntaxError{Line: 1, Msg: err.Error()}
}

type fence struct {
	info string
	body string
}

// splitFences returns the ``` blocks of text in order. An unterminated
// trailing fence is ignored.
func splitFences(text string) []fence {
	var out []fence
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			return out
		}
		rest = rest[start+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			return out
		}
		block := rest[:end]
		rest = rest[end+3:]

		info, body, multiline := strings.Cut(block, "\n")
		if !multiline {
			info, body = "", block
		}
		out = append(out, fence{info: strings.TrimSpace(info), body: body})
	}
}

// ExtractCode pulls the program out of a model reply: the first block fenced
// with one of lang's tags, else the first untagged block, else the trimmed
// reply itself.
func ExtractCode(text string, lang Language) string {
	blocks := splitFences(text)
	for _, b := range blocks {
		if b.info != "" && lang.hasTag(strings.Fields(b.info)[0]) {
			return strings.TrimSpace(b.body)
		}
		// Single-line form: ```python print(1)```
		if b.info == "" && !strings.Contains(b.body, "\n") {
			if tag, body, ok := strings.Cut(strings.TrimSpace(b.body), " "); ok && lang.hasTag(tag) {
				return strings.TrimSpace(body)
			}
		}
	}
	for _, b := range blocks {
		if b.info == "" {
			return strings.TrimSpace(b.body)
		}
	}
	return strings.TrimSpace(text)
}
