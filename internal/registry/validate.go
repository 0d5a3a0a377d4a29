package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/flags"
)

// ValidateRegistry checks that every platform names its compilers and that its
// default flags tokenize cleanly.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	for _, name := range r.Names() {
		p := r.platforms[name]
		if p.CC == "" || p.CXX == "" {
			errs = append(errs, fmt.Errorf("platform '%s': cc and cxx must be set", name))
		}
		for _, raw := range p.CompileFlags {
			if _, err := flags.Tokenize(raw, flags.OriginBaseDefault, flags.ScopeGlobal); err != nil {
				errs = append(errs, fmt.Errorf("platform '%s': build_flags: %w", name, err))
			}
		}
		for _, raw := range p.LinkFlags {
			if _, err := flags.Tokenize(raw, flags.OriginBaseDefault, flags.ScopeGlobal); err != nil {
				errs = append(errs, fmt.Errorf("platform '%s': link_flags: %w", name, err))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Debug("Platform registry validated.", "platforms", len(r.platforms))
	return nil
}
