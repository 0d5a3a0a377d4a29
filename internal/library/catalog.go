package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Root is one library search root: a directory whose subdirectories are
// libraries.
type Root struct {
	Dir    string
	Origin Origin
}

// Catalog is the ordered set of candidates visible to one resolution.
// Candidates keep the order they were added in, which is the search order.
type Catalog struct {
	candidates  []*Candidate
	byCanonical map[string]*Candidate
	ignore      map[string]bool
}

// NewCatalog returns an empty catalog that drops libraries named in ignore.
func NewCatalog(ignore ...string) *Catalog {
	c := &Catalog{byCanonical: make(map[string]*Candidate), ignore: make(map[string]bool)}
	for _, n := range ignore {
		c.ignore[n] = true
	}
	return c
}

// Add appends a candidate. A candidate whose canonical root is already known
// is not added again; the known one is returned instead. Ignored names yield
// nil.
func (c *Catalog) Add(cand *Candidate) *Candidate {
	if known, ok := c.byCanonical[cand.Root]; ok {
		known.Explicit = known.Explicit || cand.Explicit
		if cand.Locator != "" && known.Locator == "" {
			known.Locator = cand.Locator
		}
		return known
	}
	if c.ignore[cand.Name] {
		return nil
	}
	cand.Priority = len(c.candidates)
	c.candidates = append(c.candidates, cand)
	c.byCanonical[cand.Root] = cand
	return cand
}

// AddRoot adds every library directory under root.Dir in lexicographic order.
// A missing root is skipped.
func (c *Catalog) AddRoot(root Root) error {
	entries, err := os.ReadDir(root.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if len(e.Name()) > 0 && e.Name()[0] == '.' {
			continue
		}
		dir := filepath.Join(root.Dir, e.Name())
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		cand, err := Load(dir, root.Origin)
		if err != nil {
			return fmt.Errorf("library %s: %w", dir, err)
		}
		c.Add(cand)
	}
	return nil
}

// Candidates returns the candidates in search order.
func (c *Catalog) Candidates() []*Candidate {
	return append([]*Candidate(nil), c.candidates...)
}

// Len returns the number of candidates.
func (c *Catalog) Len() int { return len(c.candidates) }

// ResolveNames keeps one candidate per name. An explicit candidate wins over
// an implicit one; otherwise the one found first wins. The shadowed
// candidates are returned.
func (c *Catalog) ResolveNames() []*Candidate {
	winner := make(map[string]*Candidate)
	for _, cand := range c.candidates {
		cur, ok := winner[cand.Name]
		if !ok || (cand.Explicit && !cur.Explicit) {
			winner[cand.Name] = cand
		}
	}

	var kept, shadowed []*Candidate
	for _, cand := range c.candidates {
		if winner[cand.Name] == cand {
			kept = append(kept, cand)
		} else {
			shadowed = append(shadowed, cand)
			delete(c.byCanonical, cand.Root)
		}
	}
	for i, cand := range kept {
		cand.Priority = i
	}
	c.candidates = kept
	return shadowed
}

// Provider returns the first candidate whose public headers include header.
func (c *Catalog) Provider(header string) *Candidate {
	for _, cand := range c.candidates {
		if cand.Provides(header) {
			return cand
		}
	}
	return nil
}

// Find returns the first candidate named d.Name whose version satisfies d.
func (c *Catalog) Find(d Dependency) *Candidate {
	for _, cand := range c.candidates {
		if cand.Name == d.Name && d.Matches(cand.Version) {
			return cand
		}
	}
	return nil
}

// ByRoot returns the candidate with the given canonical root.
func (c *Catalog) ByRoot(root string) *Candidate {
	return c.byCanonical[root]
}
