package persona

import (
	"log/slog"
	"strings"

	"github.com/nao1215/cotestpilot/internal/model"
)

// Resolve maps caller-supplied tester identifiers to personas.
//
// Each identifier is matched case-insensitively, first against persona
// names and then as a substring of persona biographies. A biography
// search can match several personas; all of them are included. Matches
// are deduplicated by name and returned in request order, with biography
// matches in definition order.
//
// An empty identifier list resolves to the default persona. Identifiers
// that match nothing are logged and skipped; if nothing matches at all,
// the default persona is returned so a misspelled identifier degrades to
// a useful check instead of a silent no-op.
func (r *Registry) Resolve(identifiers []string, logger *slog.Logger) []model.Persona {
	if logger == nil {
		logger = slog.Default()
	}

	if len(identifiers) == 0 {
		return []model.Persona{r.Default()}
	}

	var resolved []model.Persona
	seen := make(map[string]bool)

	add := func(p model.Persona) {
		key := r.folder.String(p.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		resolved = append(resolved, p)
	}

	for _, id := range identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		// Exact name match takes priority over biography search.
		if p, ok := r.Get(id); ok {
			add(p)
			continue
		}

		folded := r.folder.String(id)
		matched := false
		for _, p := range r.personas {
			if strings.Contains(r.folder.String(p.Biography), folded) {
				add(p)
				matched = true
			}
		}
		if !matched {
			logger.Warn("no persona matched tester identifier", "identifier", id)
		}
	}

	if len(resolved) == 0 {
		logger.Warn("no tester identifier matched any persona, using default",
			"default", r.Default().Name)
		return []model.Persona{r.Default()}
	}
	return resolved
}
