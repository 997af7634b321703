// Package synergy implements tag rules, tagged interfaces and the matcher that
// pairs outputs of one entity with inputs of another.
package synergy

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default_tags.toml
var defaultTagTable []byte

// Rule is a named synergy: source tags produce it, target tags consume it.
type Rule struct {
	Name       string   `toml:"name" json:"name"`
	Weight     float64  `toml:"weight" json:"weight"`
	TargetTags []string `toml:"targets" json:"targets"`
	SourceTags []string `toml:"sources" json:"sources"`

	targets map[string]struct{}
	sources map[string]struct{}
}

// HasSource reports whether tag produces this synergy.
func (r *Rule) HasSource(tag string) bool {
	_, ok := r.sources[tag]
	return ok
}

// HasTarget reports whether tag consumes this synergy.
func (r *Rule) HasTarget(tag string) bool {
	_, ok := r.targets[tag]
	return ok
}

// DirectionOf returns the direction of tag relative to this rule only.
func (r *Rule) DirectionOf(tag string) DirectionSet {
	var d DirectionSet
	if r.HasSource(tag) {
		d |= Output
	}
	if r.HasTarget(tag) {
		d |= Input
	}
	return d
}

// ruleTable is the on-disk layout of a rule table.
type ruleTable struct {
	Synergies []Rule `toml:"synergy"`
}

// Registry is the immutable tag rule table. Build it once and share the pointer.
type Registry struct {
	rules    []*Rule
	byName   map[string]*Rule
	bySource map[string][]*Rule
	byTarget map[string][]*Rule
	order    map[string]int
}

// NewRegistry validates rules and builds the lookup indexes.
func NewRegistry(rules []Rule) (*Registry, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("registry needs at least one rule")
	}

	reg := &Registry{
		rules:    make([]*Rule, 0, len(rules)),
		byName:   make(map[string]*Rule, len(rules)),
		bySource: make(map[string][]*Rule),
		byTarget: make(map[string][]*Rule),
		order:    make(map[string]int, len(rules)),
	}

	for i := range rules {
		r := rules[i]
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if _, dup := reg.byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		if r.Weight <= 0 {
			return nil, fmt.Errorf("rule %q: weight must be positive, got %v", r.Name, r.Weight)
		}
		if len(r.SourceTags) == 0 && len(r.TargetTags) == 0 {
			return nil, fmt.Errorf("rule %q declares no tags", r.Name)
		}

		rule := &Rule{
			Name:       r.Name,
			Weight:     r.Weight,
			TargetTags: append([]string(nil), r.TargetTags...),
			SourceTags: append([]string(nil), r.SourceTags...),
			targets:    make(map[string]struct{}, len(r.TargetTags)),
			sources:    make(map[string]struct{}, len(r.SourceTags)),
		}
		for _, tag := range rule.SourceTags {
			if _, seen := rule.sources[tag]; seen {
				continue
			}
			rule.sources[tag] = struct{}{}
			reg.bySource[tag] = append(reg.bySource[tag], rule)
		}
		for _, tag := range rule.TargetTags {
			if _, seen := rule.targets[tag]; seen {
				continue
			}
			rule.targets[tag] = struct{}{}
			reg.byTarget[tag] = append(reg.byTarget[tag], rule)
		}

		reg.order[rule.Name] = len(reg.rules)
		reg.rules = append(reg.rules, rule)
		reg.byName[rule.Name] = rule
	}

	return reg, nil
}

// LoadRegistry parses a TOML rule table.
func LoadRegistry(data []byte) (*Registry, error) {
	var table ruleTable
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	return NewRegistry(table.Synergies)
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := LoadRegistry(defaultTagTable)
	if err != nil {
		panic(fmt.Sprintf("built-in synergy table is invalid: %v", err))
	}
	return reg
})

// DefaultRegistry returns the built-in rule table. It is parsed on first use.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Rule returns the rule with the given name.
func (r *Registry) Rule(name string) (*Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// Rules returns all rules in table order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// BySourceTag returns the rules that tag produces.
func (r *Registry) BySourceTag(tag string) []*Rule {
	return r.bySource[tag]
}

// ByTargetTag returns the rules that tag consumes.
func (r *Registry) ByTargetTag(tag string) []*Rule {
	return r.byTarget[tag]
}

// RulesForTag returns every rule that mentions tag, in table order.
func (r *Registry) RulesForTag(tag string) []*Rule {
	src, dst := r.bySource[tag], r.byTarget[tag]
	if len(dst) == 0 {
		return src
	}
	if len(src) == 0 {
		return dst
	}

	seen := make(map[string]struct{}, len(src)+len(dst))
	out := make([]*Rule, 0, len(src)+len(dst))
	for _, rule := range append(append([]*Rule(nil), src...), dst...) {
		if _, ok := seen[rule.Name]; ok {
			continue
		}
		seen[rule.Name] = struct{}{}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].Name] < r.order[out[j].Name]
	})
	return out
}

// DirectionsOf returns the union of directions tag has across all rules.
func (r *Registry) DirectionsOf(tag string) DirectionSet {
	var d DirectionSet
	if len(r.bySource[tag]) > 0 {
		d |= Output
	}
	if len(r.byTarget[tag]) > 0 {
		d |= Input
	}
	return d
}

// SourceTags returns every source tag, sorted.
func (r *Registry) SourceTags() []string {
	return sortedKeys(r.bySource)
}

// TargetTags returns every target tag, sorted.
func (r *Registry) TargetTags() []string {
	return sortedKeys(r.byTarget)
}

// IsSourceTag reports whether tag is a source of any rule.
func (r *Registry) IsSourceTag(tag string) bool {
	return len(r.bySource[tag]) > 0
}

// IsTargetTag reports whether tag is a target of any rule.
func (r *Registry) IsTargetTag(tag string) bool {
	return len(r.byTarget[tag]) > 0
}

// Order returns the table position of a synergy name, or -1.
func (r *Registry) Order(name string) int {
	if i, ok := r.order[name]; ok {
		return i
	}
	return -1
}

func sortedKeys(m map[string][]*Rule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
