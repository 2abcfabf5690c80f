package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"voxel-renderer/materials"
)

// SourceLine is one line of assembled shader text and where it came from.
type SourceLine struct {
	Text string
	File string
	Line int
}

// DefinesFile is the provenance file name of injected #define lines.
const DefinesFile = "<defines>"

// Lines splits text from file into provenance-tagged lines numbered from 1.
func Lines(file, text string) []SourceLine {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	raw := strings.Split(text, "\n")
	out := make([]SourceLine, len(raw))
	for i, l := range raw {
		out[i] = SourceLine{Text: l, File: file, Line: i + 1}
	}
	return out
}

// Join concatenates lines into the text handed to the compiler.
func Join(lines []SourceLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// SupportedVersions are the GLSL versions accepted in a #version directive.
var SupportedVersions = map[int]bool{
	330: true, 400: true, 410: true, 420: true, 430: true, 440: true, 450: true, 460: true,
}

// checkVersion finds the #version directive, which must be the first
// non-blank, non-comment line, and returns its index.
func checkVersion(program string, stage materials.ShaderStage, lines []SourceLine) (int, error) {
	for i, l := range lines {
		t := strings.TrimSpace(l.Text)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		fields := strings.Fields(t)
		bad := &WrongShaderVersionError{Program: program, Stage: stage, File: l.File, Line: l.Line}
		if fields[0] != "#version" {
			bad.Found = "no #version directive"
			return 0, bad
		}
		if len(fields) < 2 {
			bad.Found = t
			return 0, bad
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil || !SupportedVersions[v] || (len(fields) > 2 && fields[2] == "es") {
			bad.Found = strings.Join(fields[1:], " ")
			return 0, bad
		}
		return i, nil
	}
	file := ""
	if len(lines) > 0 {
		file = lines[0].File
	}
	return 0, &WrongShaderVersionError{Program: program, Stage: stage, File: file, Found: "empty source"}
}

// injectDefines places one #define per symbol directly after the #version line.
func injectDefines(lines []SourceLine, versionAt int, defines []string) []SourceLine {
	if len(defines) == 0 {
		return lines
	}
	out := make([]SourceLine, 0, len(lines)+len(defines))
	out = append(out, lines[:versionAt+1]...)
	for i, d := range defines {
		d = strings.Replace(strings.TrimSpace(d), "=", " ", 1)
		out = append(out, SourceLine{Text: "#define " + d, File: DefinesFile, Line: i + 1})
	}
	return append(out, lines[versionAt+1:]...)
}

// Diagnostic is one compiler message mapped back to its original file.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return d.Message
	}
	return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
}

var logFormats = []struct {
	re        *regexp.Regexp
	line, msg int
	prefix    int
}{
	// NVIDIA: 0(47) : error C1008: undefined variable "foo"
	{re: regexp.MustCompile(`^\s*\d+\((\d+)\)\s*:\s*(.*)$`), line: 1, msg: 2},
	// AMD, Intel, Apple: ERROR: 0:47: 'foo' : undeclared identifier
	{re: regexp.MustCompile(`^\s*(ERROR|WARNING):\s*\d+:(\d+):\s*(.*)$`), prefix: 1, line: 2, msg: 3},
	// Mesa: 0:47(3): error: `foo' undeclared
	{re: regexp.MustCompile(`^\s*\d+:(\d+)\(\d+\):\s*(.*)$`), line: 1, msg: 2},
}

// Remap rewrites the line references in a driver log using the provenance
// of the compiled text. Line N of the log is lines[N-1].
func Remap(log string, lines []SourceLine) []Diagnostic {
	var out []Diagnostic
	for _, raw := range strings.Split(log, "\n") {
		raw = strings.TrimRight(raw, "\x00\r ")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		out = append(out, remapLine(raw, lines))
	}
	return out
}

func remapLine(raw string, lines []SourceLine) Diagnostic {
	for _, f := range logFormats {
		m := f.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[f.line])
		if err != nil {
			break
		}
		msg := m[f.msg]
		if f.prefix > 0 {
			msg = strings.ToLower(m[f.prefix]) + ": " + msg
		}
		if n < 1 || n > len(lines) {
			return Diagnostic{File: "<unknown>", Line: n, Message: msg}
		}
		src := lines[n-1]
		return Diagnostic{File: src.File, Line: src.Line, Message: msg}
	}
	return Diagnostic{Message: raw}
}
