package ldf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/vk/envbuild/internal/fsutil"
	"github.com/vk/envbuild/internal/library"
)

// fingerprint digests everything a resolution depends on: the include sets
// of the project files, the headers visible through flag include dirs and
// the identity and file stamps of every candidate.
func fingerprint(mode string, projectRoot string, project []projectFile, flagDirs []string, catalog *library.Catalog) (digest.Digest, error) {
	digester := digest.Canonical.Digester()
	h := digester.Hash()

	fmt.Fprintf(h, "mode %s\n", mode)
	for _, f := range project {
		rel, err := filepath.Rel(projectRoot, f.path)
		if err != nil {
			rel = f.path
		}
		fmt.Fprintf(h, "file %s\n", filepath.ToSlash(rel))
		for _, inc := range f.includes {
			fmt.Fprintf(h, "  include %t %s\n", inc.Quoted, inc.Header)
		}
	}

	for _, dir := range flagDirs {
		fmt.Fprintf(h, "incdir %s\n", dir)
		if err := stampDir(h, dir, fsutil.HeaderExtensions); err != nil {
			return "", err
		}
	}

	for _, c := range catalog.Candidates() {
		fmt.Fprintf(h, "lib %s %s %s explicit=%t\n", c.Name, c.Version, c.Root, c.Explicit)
		if err := stampFiles(h, c); err != nil {
			return "", err
		}
	}
	return digester.Digest(), nil
}

// stampFiles writes the size and modification time of each library file.
func stampFiles(w io.Writer, c *library.Candidate) error {
	exts := append(append([]string{}, fsutil.SourceExtensions...), fsutil.HeaderExtensions...)
	exts = append(exts, library.DescriptorFiles...)
	return stampDir(w, c.Root, exts)
}

// stampDir writes the size and modification time of every file under dir
// with one of exts. A missing dir writes nothing.
func stampDir(w io.Writer, dir string, exts []string) error {
	files, err := fsutil.FindFilesByExtension(dir, exts...)
	if err != nil {
		return err
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(f, dir)
		fmt.Fprintf(w, "  %s %d %d\n", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
	}
	return nil
}
