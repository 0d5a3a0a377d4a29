package ldf

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/cachestore"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/fsutil"
	"github.com/vk/envbuild/internal/library"
)

// Result is the outcome of a resolution.
type Result struct {
	Graph       *dag.Graph
	Fingerprint digest.Digest
	// Cached is true when the graph was restored instead of scanned.
	Cached bool
}

// Resolver runs the dependency finder. Cache is optional.
type Resolver struct {
	Cache cachestore.Store
}

type projectFile struct {
	path     string
	includes []Include
}

// Resolve builds the dependency graph for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	catalog, explicit, err := buildCatalog(ctx, req)
	if err != nil {
		return nil, err
	}

	project, err := scanProject(req)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint(string(req.Mode), req.ProjectRoot, project, req.FlagIncludeDirs, catalog)
	if err != nil {
		return nil, builderr.Resolution(req.Env, req.ProjectRoot, err)
	}
	key := cachestore.Key{ProjectRoot: req.ProjectRoot, Mode: string(req.Mode)}

	if g := r.fromCache(ctx, key, fp, catalog); g != nil {
		logger.Info("Dependency graph restored from cache.", "libraries", g.Len()-1, "fingerprint", fp.Encoded()[:12])
		return &Result{Graph: g, Fingerprint: fp, Cached: true}, nil
	}

	s := &scan{
		req:      req,
		catalog:  catalog,
		graph:    dag.New(filepath.Base(req.ProjectRoot)),
		seen:     make(map[string]bool),
		byHeader: make(map[dag.NodeID]bool),
		logger:   logger,
	}
	if err := s.run(ctx, project, explicit); err != nil {
		return nil, err
	}

	for _, u := range s.graph.Unresolved() {
		logger.Debug("Include not found in any search root.", "header", u.Header, "from", u.From)
	}
	logger.Info("Dependency graph resolved.",
		"mode", req.Mode,
		"libraries", s.graph.Len()-1,
		"unresolved", len(s.graph.Unresolved()),
		"duration", time.Since(start).String(),
	)

	r.store(ctx, key, fp, s.graph)
	return &Result{Graph: s.graph, Fingerprint: fp}, nil
}

func (r *Resolver) fromCache(ctx context.Context, key cachestore.Key, fp digest.Digest, catalog *library.Catalog) *dag.Graph {
	if r.Cache == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	entry, err := r.Cache.Get(ctx, key)
	if errors.Is(err, cachestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Warn("Dependency cache read failed.", "error", err)
		return nil
	}
	if entry.Fingerprint != fp.String() {
		logger.Debug("Dependency cache entry is stale, rescanning.", "mode", key.Mode)
		r.invalidate(ctx, key)
		return nil
	}
	g, err := dag.Restore(entry.Graph, catalog.ByRoot)
	if err != nil {
		logger.Debug("Dependency cache entry cannot be restored, rescanning.", "error", err)
		r.invalidate(ctx, key)
		return nil
	}
	return g
}

func (r *Resolver) invalidate(ctx context.Context, key cachestore.Key) {
	if err := r.Cache.Delete(ctx, key); err != nil {
		ctxlog.FromContext(ctx).Warn("Dependency cache delete failed.", "error", err)
	}
}

func (r *Resolver) store(ctx context.Context, key cachestore.Key, fp digest.Digest, g *dag.Graph) {
	if r.Cache == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	snap, err := g.Snapshot()
	if err != nil {
		logger.Warn("Dependency graph snapshot failed.", "error", err)
		return
	}
	entry := &cachestore.Entry{Fingerprint: fp.String(), Graph: snap, CreatedAt: time.Now().UTC()}
	if err := r.Cache.Put(ctx, key, entry); err != nil {
		logger.Warn("Dependency cache write failed.", "error", err)
	}
}

// scanProject reads the include sets of every project file that can affect
// the result: the seeds plus the project's own include dirs. Flag include
// dirs are stamped by fingerprint instead.
func scanProject(req Request) ([]projectFile, error) {
	exts := append(append([]string{}, fsutil.SourceExtensions...), fsutil.HeaderExtensions...)
	seen := make(map[string]bool)
	var out []projectFile
	for _, dir := range append(req.seedDirs(), req.layoutIncludeDirs()...) {
		files, err := fsutil.FindFilesByExtension(dir, exts...)
		if err != nil {
			return nil, builderr.Resolution(req.Env, dir, err)
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			includes, err := ScanFile(f)
			if err != nil {
				return nil, builderr.Resolution(req.Env, f, err)
			}
			out = append(out, projectFile{path: f, includes: includes})
		}
	}
	return out, nil
}

// work is one queue item: a file to scan, or a library to expand.
type work struct {
	path  string
	owner dag.NodeID
}

type scan struct {
	req     Request
	catalog *library.Catalog
	graph   *dag.Graph
	queue   []work
	// seen holds every file already queued, by canonical path.
	seen map[string]bool
	// byHeader marks libraries discovered through an include directive.
	byHeader map[dag.NodeID]bool
	// known holds the include sets already read by scanProject.
	known  map[string][]Include
	logger *slog.Logger
}

func (s *scan) run(ctx context.Context, project []projectFile, explicit []*library.Candidate) error {
	seedDirs := s.req.seedDirs()
	s.known = make(map[string][]Include, len(project))
	for _, f := range project {
		s.known[f.path] = f.includes
	}
	for _, f := range project {
		if underAny(f.path, seedDirs) {
			s.enqueueFile(f.path, dag.RootID)
		}
	}

	for _, c := range explicit {
		id, err := s.addLibrary(c, false)
		if err != nil {
			return err
		}
		s.addEdge(dag.RootID, id)
	}

	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := s.queue[0]
		s.queue = s.queue[1:]

		var err error
		if w.path == "" {
			err = s.expand(w.owner)
		} else {
			err = s.scanFile(w)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scan) enqueueFile(path string, owner dag.NodeID) {
	key, err := fsutil.Canonical(path)
	if err != nil {
		key = filepath.Clean(path)
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.queue = append(s.queue, work{path: path, owner: owner})
}

// addLibrary returns the node of c, adding it and queueing its expansion if
// it is new.
func (s *scan) addLibrary(c *library.Candidate, viaHeader bool) (dag.NodeID, error) {
	if id, ok := s.graph.Lookup(c.Root); ok {
		return id, nil
	}
	id, err := s.graph.AddLibrary(c)
	if err != nil {
		return 0, builderr.WithEnv(err, s.req.Env)
	}
	s.byHeader[id] = viaHeader
	s.queue = append(s.queue, work{owner: id})
	s.logger.Debug("Library discovered.", "library", c.DiagnosticName(), "origin", c.Origin, "path", c.Root)
	return id, nil
}

func (s *scan) addEdge(from, to dag.NodeID) {
	if _, err := s.graph.AddEdge(from, to); err != nil {
		s.logger.Debug("Dependency edge dropped.", "from", s.graph.Node(from).Name, "to", s.graph.Node(to).Name, "reason", err)
	}
}

// expand queues the files of a newly discovered library and unions in its
// descriptor dependencies.
func (s *scan) expand(id dag.NodeID) error {
	c := s.graph.Node(id).Candidate

	switch {
	case s.req.Mode.Deep():
		sources, err := c.Sources()
		if err != nil {
			return builderr.Resolution(s.req.Env, c.Root, err)
		}
		for _, src := range sources {
			s.enqueueFile(src, id)
		}
	case !s.byHeader[id]:
		for _, h := range c.Headers {
			if p := c.HeaderPath(h); p != "" {
				s.enqueueHeader(c, h, p, id)
			}
		}
	}

	for _, dep := range c.Dependencies {
		target, err := s.dependency(c, dep)
		if err != nil {
			return err
		}
		if target == nil {
			continue
		}
		depID, err := s.addLibrary(target, false)
		if err != nil {
			return err
		}
		s.addEdge(id, depID)
	}
	return nil
}

// dependency resolves a descriptor dependency. A name no root provides is
// recorded as unresolved.
func (s *scan) dependency(owner *library.Candidate, dep library.Dependency) (*library.Candidate, error) {
	if dep.IsLocator() {
		c, err := library.ResolveLocator(owner.Root, dep)
		if err != nil {
			return nil, builderr.Resolution(s.req.Env, owner.DescriptorPath, err)
		}
		added := s.catalog.Add(c)
		if added == nil {
			s.logger.Debug("Dependency is listed in lib_ignore.", "library", c.DiagnosticName())
		}
		return added, nil
	}
	c := s.catalog.Find(dep)
	if c == nil {
		s.graph.RecordUnresolved(dep.Raw, s.rel(owner.DescriptorPath))
		s.logger.Warn("Library dependency not found.", "library", owner.DiagnosticName(), "dependency", dep.Raw)
	}
	return c, nil
}

func (s *scan) scanFile(w work) error {
	includes, ok := s.known[w.path]
	if !ok {
		var err error
		if includes, err = ScanFile(w.path); err != nil {
			return builderr.Resolution(s.req.Env, w.path, err)
		}
	}

	for _, inc := range includes {
		if local := s.localHeader(w, inc); local != "" {
			s.enqueueFile(local, w.owner)
			continue
		}

		provider := s.catalog.Provider(inc.Header)
		if provider == nil {
			s.graph.RecordUnresolved(inc.Header, s.rel(w.path))
			continue
		}
		id, err := s.addLibrary(provider, true)
		if err != nil {
			return err
		}
		s.addEdge(w.owner, id)
		if p := provider.HeaderPath(inc.Header); p != "" {
			s.enqueueHeader(provider, inc.Header, p, id)
		}
	}
	return nil
}

// enqueueHeader queues a library header and its same-stem source siblings.
func (s *scan) enqueueHeader(c *library.Candidate, header, path string, owner dag.NodeID) {
	s.enqueueFile(path, owner)
	for _, sib := range siblings(c, header, path) {
		s.enqueueFile(sib, owner)
	}
}

// localHeader resolves an include against the including file's own tree:
// the file's directory for quoted includes, then the project include dirs
// or the owning library's include dirs.
func (s *scan) localHeader(w work, inc Include) string {
	if inc.Quoted {
		if p := filepath.Join(filepath.Dir(w.path), inc.Header); isFile(p) {
			return p
		}
	}
	var dirs []string
	if w.owner == dag.RootID {
		dirs = s.req.projectIncludeDirs()
	} else {
		dirs = s.graph.Node(w.owner).Candidate.IncludeDirs
	}
	for _, d := range dirs {
		if p := filepath.Join(d, inc.Header); isFile(p) {
			return p
		}
	}
	return ""
}

func (s *scan) rel(path string) string {
	if rel, err := filepath.Rel(s.req.ProjectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// siblings returns the existing sources sharing the header's stem, either
// next to the header or at the mirrored path in a source dir.
func siblings(c *library.Candidate, header, path string) []string {
	stem := strings.TrimSuffix(header, filepath.Ext(header))
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var out []string
	seen := make(map[string]bool)
	try := func(p string) {
		if !seen[p] && isFile(p) {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, ext := range fsutil.SourceExtensions {
		try(filepath.Join(filepath.Dir(path), base+ext))
		for _, dir := range c.SrcDirs {
			try(filepath.Join(dir, filepath.FromSlash(stem)+ext))
			try(filepath.Join(dir, base+ext))
		}
	}
	return out
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func underAny(path string, dirs []string) bool {
	for _, d := range dirs {
		if rel, err := filepath.Rel(d, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
