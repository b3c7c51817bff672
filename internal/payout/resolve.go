package payout

import (
	"strings"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// resolver matches the free-text entity references the office staff type
// against the authoritative entity list. Strategies are tried in order;
// first match wins. Callers count the misses.
type resolver struct {
	byID   map[string]upstream.Entity
	byName map[string]upstream.Entity
	byCode map[string]upstream.Entity
}

func newResolver(entities []upstream.Entity) *resolver {
	r := &resolver{
		byID:   make(map[string]upstream.Entity, len(entities)),
		byName: make(map[string]upstream.Entity, len(entities)),
		byCode: make(map[string]upstream.Entity, len(entities)),
	}
	for _, e := range entities {
		r.byID[e.ID] = e
		if n := normalizeName(e.Name); n != "" {
			r.byName[n] = e
		}
		if c := normalizeName(e.Code); c != "" {
			r.byCode[c] = e
		}
	}
	return r
}

func (r *resolver) resolve(ref string) (upstream.Entity, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return upstream.Entity{}, false
	}
	if e, ok := r.byID[ref]; ok {
		return e, true
	}
	norm := normalizeName(ref)
	if e, ok := r.byName[norm]; ok {
		return e, true
	}
	// Compound "Name - CODE" entries come from a free-text picker.
	if name, code, ok := splitCompound(ref); ok {
		if e, found := r.byName[normalizeName(name)]; found {
			return e, true
		}
		if e, found := r.byCode[normalizeName(code)]; found {
			return e, true
		}
		if e, found := r.byID[strings.TrimSpace(code)]; found {
			return e, true
		}
	}
	return upstream.Entity{}, false
}

func splitCompound(ref string) (name, code string, ok bool) {
	idx := strings.LastIndex(ref, " - ")
	if idx < 0 {
		return "", "", false
	}
	return ref[:idx], ref[idx+3:], true
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
