package ldf

import (
	"context"
	"fmt"

	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/library"
)

// buildCatalog enumerates the search roots and places the explicit lib_deps
// right after the leading project-local roots. It returns the catalog and
// the explicit candidates in declaration order.
func buildCatalog(ctx context.Context, req Request) (*library.Catalog, []*library.Candidate, error) {
	logger := ctxlog.FromContext(ctx)

	perRoot := make([]*library.Catalog, len(req.Roots))
	for i, root := range req.Roots {
		perRoot[i] = library.NewCatalog(req.Ignore...)
		if err := perRoot[i].AddRoot(root); err != nil {
			return nil, nil, builderr.Resolution(req.Env, root.Dir, err)
		}
	}

	var wanted []*library.Candidate
	for _, raw := range req.LibDeps {
		dep, err := library.ParseDependency(raw)
		if err != nil {
			return nil, nil, builderr.Resolution(req.Env, raw, err)
		}

		var c *library.Candidate
		if dep.IsLocator() {
			c, err = library.ResolveLocator(req.ProjectRoot, dep)
			if err != nil {
				return nil, nil, builderr.Resolution(req.Env, raw, err)
			}
		} else {
			for _, cat := range perRoot {
				if c = cat.Find(dep); c != nil {
					break
				}
			}
			if c == nil {
				return nil, nil, builderr.Resolution(req.Env, raw, fmt.Errorf("library %q not found in any search root", dep.Name))
			}
		}
		c.Explicit = true
		wanted = append(wanted, c)
	}

	catalog := library.NewCatalog(req.Ignore...)
	var explicit []*library.Candidate
	addExplicit := func() {
		for _, c := range wanted {
			added := catalog.Add(c)
			if added == nil {
				logger.Warn("Explicit dependency is listed in lib_ignore.", "library", c.DiagnosticName())
				continue
			}
			explicit = append(explicit, added)
		}
		wanted = nil
	}

	for i, root := range req.Roots {
		if root.Origin != library.OriginProjectLocal {
			addExplicit()
		}
		for _, c := range perRoot[i].Candidates() {
			catalog.Add(c)
		}
	}
	addExplicit()

	for _, c := range catalog.ResolveNames() {
		logger.Debug("Library shadowed by another with the same name.", "library", c.DiagnosticName(), "path", c.Root)
	}

	var kept []*library.Candidate
	seen := make(map[*library.Candidate]bool)
	for _, c := range explicit {
		if catalog.ByRoot(c.Root) == c && !seen[c] {
			seen[c] = true
			kept = append(kept, c)
		}
	}
	logger.Debug("Library catalog built.", "candidates", catalog.Len(), "explicit", len(kept))
	return catalog, kept, nil
}
