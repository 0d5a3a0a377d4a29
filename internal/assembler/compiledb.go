package assembler

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kballard/go-shellquote"
)

// CompileCommand is one entry of a compile_commands.json database.
type CompileCommand struct {
	Directory string `json:"directory"`
	Command   string `json:"command"`
	File      string `json:"file"`
	Output    string `json:"output"`
}

// CompileCommands returns the plan as a compilation database. Unlike the
// transcript it carries the full argument vectors.
func (p *Plan) CompileCommands() []CompileCommand {
	out := make([]CompileCommand, 0, len(p.Units))
	for _, u := range p.Units {
		out = append(out, CompileCommand{
			Directory: p.ProjectRoot,
			Command:   shellquote.Join(u.Argv()...),
			File:      u.Source.Path,
			Output:    u.Object,
		})
	}
	return out
}

// WriteCompileCommands writes compile_commands.json into dir.
func (p *Plan) WriteCompileCommands(dir string) (string, error) {
	data, err := json.MarshalIndent(p.CompileCommands(), "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "compile_commands.json")
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}
