package assembler

import (
	"fmt"

	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/fsutil"
)

// CollectSources lists the project sources under srcDirs followed by the
// sources of every library in the graph, in discovery order.
func CollectSources(srcDirs []string, g *dag.Graph) ([]SourceFile, error) {
	var out []SourceFile
	for _, dir := range srcDirs {
		files, err := fsutil.FindFilesByExtension(dir, fsutil.SourceExtensions...)
		if err != nil {
			return nil, fmt.Errorf("listing sources in %s: %w", dir, err)
		}
		for _, f := range files {
			out = append(out, SourceFile{Path: f, Scope: ScopeProject, Owner: dag.RootID})
		}
	}

	for _, n := range g.Libraries() {
		files, err := n.Candidate.Sources()
		if err != nil {
			return nil, fmt.Errorf("listing sources of library %s: %w", n.Name, err)
		}
		for _, f := range files {
			out = append(out, SourceFile{Path: f, Scope: ScopeLibrary, Owner: n.ID})
		}
	}
	return out, nil
}
