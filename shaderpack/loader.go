package shaderpack

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"voxel-renderer/internal/logger"
	"voxel-renderer/materials"
	"voxel-renderer/shader"
)

// SourceLoader supplies the raw content of a shaderpack.
type SourceLoader interface {
	LoadMaterialDocuments(pack string) ([]materials.Declaration, error)
	LoadShaderSource(pack string, state *materials.PipelineState, stage materials.ShaderStage) ([]shader.SourceLine, error)
}

// StageExtensions lists, per stage, the file extensions tried in order when
// resolving a shader hint.
var StageExtensions = map[materials.ShaderStage][]string{
	materials.StageVertex:      {".vert", ".vsh"},
	materials.StageFragment:    {".frag", ".fsh"},
	materials.StageGeometry:    {".geom", ".geo"},
	materials.StageTessEval:    {".tese", ".tse"},
	materials.StageTessControl: {".tesc", ".tsc"},
}

const (
	materialsDir      = "materials"
	shadersDir        = "shaders"
	materialExt       = ".material"
	maxIncludeDepth   = 32
	parentKeySeparate = ":"
)

var includeDirective = regexp.MustCompile(`^\s*#include\s+"([^"]+)"\s*$`)

// ErrPackNotFound is returned when a pack has no material files.
var ErrPackNotFound = errors.New("shaderpack not found")

// DirLoader reads packs laid out as <pack>/materials/*.material and
// <pack>/shaders/<hint><ext> from a file system.
type DirLoader struct {
	FS fs.FS
}

func NewDirLoader(fsys fs.FS) *DirLoader {
	return &DirLoader{FS: fsys}
}

// LoadMaterialDocuments decodes every material file of pack. Files are read
// in name order and states in key order, which is the discovery order of
// the pack. A file that does not decode is logged and skipped.
func (l *DirLoader) LoadMaterialDocuments(pack string) ([]materials.Declaration, error) {
	files, err := fs.Glob(l.FS, path.Join(pack, materialsDir, "*"+materialExt))
	if err != nil {
		return nil, fmt.Errorf("list materials of %q: %w", pack, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPackNotFound, pack)
	}
	sort.Strings(files)

	var decls []materials.Declaration
	for _, file := range files {
		data, err := fs.ReadFile(l.FS, file)
		if err != nil {
			logger.Log.Warn("Skipping unreadable material file", zap.String("file", file), zap.Error(err))
			continue
		}
		fileDecls, err := decodeMaterialFile(data)
		if err != nil {
			logger.Log.Warn("Skipping malformed material file", zap.String("file", file), zap.Error(err))
			continue
		}
		decls = append(decls, fileDecls...)
	}
	return decls, nil
}

// decodeMaterialFile walks the top-level mapping in order. Keys are
// "<state>" or "<state>:<parent>".
func decodeMaterialFile(data []byte) ([]materials.Declaration, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of material states", top.Line)
	}

	var decls []materials.Declaration
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, body := top.Content[i], top.Content[i+1]
		name, parent, _ := strings.Cut(key.Value, parentKeySeparate)
		d := materials.Declaration{Name: strings.TrimSpace(name), Parent: strings.TrimSpace(parent)}
		if err := body.Decode(&d.Document); err != nil {
			return nil, fmt.Errorf("state %q: %w", key.Value, err)
		}
		if d.Document == nil {
			d.Document = materials.Document{}
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// LoadShaderSource resolves the hint of stage and expands its includes.
func (l *DirLoader) LoadShaderSource(pack string, state *materials.PipelineState, stage materials.ShaderStage) ([]shader.SourceLine, error) {
	hint := state.ShaderHint(stage)
	if hint == "" {
		return nil, fmt.Errorf("no %s shader declared", stage)
	}
	base := path.Join(pack, shadersDir, hint)
	for _, ext := range StageExtensions[stage] {
		file := base + ext
		if _, err := fs.Stat(l.FS, file); err == nil {
			return l.expand(pack, file, nil)
		}
	}
	return nil, fmt.Errorf("shader %q not found (tried %s)", base, strings.Join(StageExtensions[stage], ", "))
}

func (l *DirLoader) expand(pack, file string, stack []string) ([]shader.SourceLine, error) {
	for _, f := range stack {
		if f == file {
			return nil, fmt.Errorf("include cycle: %s -> %s", strings.Join(stack, " -> "), file)
		}
	}
	if len(stack) >= maxIncludeDepth {
		return nil, fmt.Errorf("include depth exceeds %d at %s", maxIncludeDepth, file)
	}
	data, err := fs.ReadFile(l.FS, file)
	if err != nil {
		return nil, err
	}
	stack = append(stack, file)

	var out []shader.SourceLine
	for _, line := range shader.Lines(file, string(data)) {
		m := includeDirective.FindStringSubmatch(line.Text)
		if m == nil {
			out = append(out, line)
			continue
		}
		target := m[1]
		if strings.HasPrefix(target, "/") {
			target = path.Join(pack, shadersDir, target)
		} else {
			target = path.Join(path.Dir(file), target)
		}
		included, err := l.expand(pack, target, stack)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", file, line.Line, err)
		}
		out = append(out, included...)
	}
	return out, nil
}
