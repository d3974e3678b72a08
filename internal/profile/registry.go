package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// keywordKind distinguishes what a matched dictionary entry contributes to
// a detection score.
type keywordKind int

const (
	kindLogo keywordKind = iota
	kindIdentifier
)

type keywordRef struct {
	profileID string
	kind      keywordKind
	keyword   string
}

// Registry is an append-only lookup from profile id to BankProfile,
// holding every bank-specific profile plus exactly one generic fallback.
// Built once at startup; Register produces a new version rather than
// mutating shared state in place.
type Registry struct {
	version  int
	profiles map[string]*BankProfile
	ids      []string // scored profiles, sorted; excludes the generic
	generic  *BankProfile

	// Single automaton over every profile's keywords and identifiers,
	// lower-cased. refs is indexed parallel to the dictionary.
	matcher *ahocorasick.Matcher
	refs    []keywordRef
}

// NewRegistry builds a registry from the given profiles. Exactly one
// profile must be marked Generic; ids must be unique.
func NewRegistry(profiles ...*BankProfile) (*Registry, error) {
	r := &Registry{version: 1, profiles: make(map[string]*BankProfile)}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile with empty id")
		}
		if _, dup := r.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		r.profiles[p.ID] = p
		if p.Generic {
			if r.generic != nil {
				return nil, fmt.Errorf("multiple generic profiles (%q, %q)", r.generic.ID, p.ID)
			}
			r.generic = p
			continue
		}
		r.ids = append(r.ids, p.ID)
	}
	if r.generic == nil {
		return nil, fmt.Errorf("no generic fallback profile registered")
	}
	sort.Strings(r.ids)
	r.buildMatcher()
	return r, nil
}

// Register returns a new registry version with the profile added. The
// receiver is left untouched, so detections in flight keep a consistent
// view. Overwriting an existing id is rejected.
func (r *Registry) Register(p *BankProfile) (*Registry, error) {
	if _, exists := r.profiles[p.ID]; exists {
		return nil, fmt.Errorf("profile %q already registered", p.ID)
	}
	all := make([]*BankProfile, 0, len(r.profiles)+1)
	for _, id := range r.ids {
		all = append(all, r.profiles[id])
	}
	all = append(all, r.generic, p)
	next, err := NewRegistry(all...)
	if err != nil {
		return nil, err
	}
	next.version = r.version + 1
	return next, nil
}

// Get returns the profile for id.
func (r *Registry) Get(id string) (*BankProfile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// Generic returns the fallback profile.
func (r *Registry) Generic() *BankProfile {
	return r.generic
}

// IDs returns the scored profile ids in deterministic order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Version returns the registry's monotonically increasing version.
func (r *Registry) Version() int {
	return r.version
}

func (r *Registry) buildMatcher() {
	var dict []string
	for _, id := range r.ids {
		p := r.profiles[id]
		for _, kw := range p.Identification.LogoKeywords {
			dict = append(dict, strings.ToLower(kw))
			r.refs = append(r.refs, keywordRef{profileID: id, kind: kindLogo, keyword: kw})
		}
		for _, ident := range p.Identification.UniqueIdentifiers {
			dict = append(dict, strings.ToLower(ident))
			r.refs = append(r.refs, keywordRef{profileID: id, kind: kindIdentifier, keyword: ident})
		}
	}
	if len(dict) > 0 {
		r.matcher = ahocorasick.NewStringMatcher(dict)
	}
}
