package shader

import (
	"fmt"
	"strings"

	"voxel-renderer/materials"
)

// WrongShaderVersionError reports a stage whose #version directive is
// missing or unsupported. It is raised before the native compiler runs.
type WrongShaderVersionError struct {
	Program string
	Stage   materials.ShaderStage
	File    string
	Line    int
	Found   string
}

func (e *WrongShaderVersionError) Error() string {
	return fmt.Sprintf("program %q %s stage: %s:%d: unsupported shader version (%s)",
		e.Program, e.Stage, e.File, e.Line, e.Found)
}

// CompilationError carries the remapped diagnostics of a failed stage.
type CompilationError struct {
	Program     string
	Stage       materials.ShaderStage
	Log         string
	Diagnostics []Diagnostic
}

func (e *CompilationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %q %s stage failed to compile", e.Program, e.Stage)
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// LinkError reports a program that compiled but did not link.
type LinkError struct {
	Program string
	Log     string
}

func (e *LinkError) Error() string {
	msg := fmt.Sprintf("Program %s failed to link", e.Program)
	if log := strings.TrimRight(e.Log, "\x00\n "); log != "" {
		msg += ": " + log
	}
	return msg
}

// SourceError wraps a failure to load the text of one stage.
type SourceError struct {
	Program string
	Stage   materials.ShaderStage
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("program %q %s stage: %v", e.Program, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
