package synergy

import (
	"math"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry([]Rule{
		{Name: "BEAST", Weight: 1.0, SourceTags: []string{"Beast"}, TargetTags: []string{"Beast Synergy"}},
		{Name: "DRAGON", Weight: 1.5, SourceTags: []string{"Dragon"}, TargetTags: []string{"Dragon Synergy"}},
		{Name: "HUNT", Weight: 0.5, SourceTags: []string{"Beast Synergy"}, TargetTags: []string{"Prey"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

// minionRegistry has one rule with two source tags.
func minionRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry([]Rule{
		{Name: "MINION", Weight: 1.0, SourceTags: []string{"Minion", "Summon"}, TargetTags: []string{"Minion Synergy"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func mustInterface(t *testing.T, reg *Registry, owner, tag string, value int) Interface {
	t.Helper()
	iface, ok := NewInterface(reg, owner, tag, value, RangeNone)
	if !ok {
		t.Fatalf("NewInterface(%q, %q, %d) dropped", owner, tag, value)
	}
	return iface
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{name: "empty", rules: nil},
		{name: "no name", rules: []Rule{{Weight: 1, SourceTags: []string{"A"}}}},
		{name: "zero weight", rules: []Rule{{Name: "A", SourceTags: []string{"A"}}}},
		{name: "no tags", rules: []Rule{{Name: "A", Weight: 1}}},
		{name: "duplicate", rules: []Rule{
			{Name: "A", Weight: 1, SourceTags: []string{"A"}},
			{Name: "A", Weight: 1, SourceTags: []string{"B"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.rules); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRegistry_Lookups(t *testing.T) {
	reg := testRegistry(t)

	if got := reg.BySourceTag("Beast"); len(got) != 1 || got[0].Name != "BEAST" {
		t.Errorf("BySourceTag(Beast) = %v", got)
	}
	if got := reg.ByTargetTag("Beast Synergy"); len(got) != 1 || got[0].Name != "BEAST" {
		t.Errorf("ByTargetTag(Beast Synergy) = %v", got)
	}
	if got := reg.RulesForTag("Beast Synergy"); len(got) != 2 || got[0].Name != "BEAST" || got[1].Name != "HUNT" {
		t.Errorf("RulesForTag(Beast Synergy) = %v, want [BEAST HUNT]", got)
	}
	if got := reg.DirectionsOf("Beast Synergy"); got != Both {
		t.Errorf("DirectionsOf(Beast Synergy) = %v, want both", got)
	}
	if got := reg.DirectionsOf("Nothing"); !got.Empty() {
		t.Errorf("DirectionsOf(Nothing) = %v, want none", got)
	}

	src := reg.SourceTags()
	want := []string{"Beast", "Beast Synergy", "Dragon"}
	if len(src) != len(want) {
		t.Fatalf("SourceTags() = %v, want %v", src, want)
	}
	for i := range want {
		if src[i] != want[i] {
			t.Errorf("SourceTags()[%d] = %q, want %q", i, src[i], want[i])
		}
	}

	rule, ok := reg.Rule("HUNT")
	if !ok {
		t.Fatal("Rule(HUNT) not found")
	}
	if rule.DirectionOf("Beast Synergy") != Output {
		t.Errorf("HUNT direction of Beast Synergy = %v, want output", rule.DirectionOf("Beast Synergy"))
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	if reg != DefaultRegistry() {
		t.Error("DefaultRegistry() should return a shared instance")
	}
	if _, ok := reg.Rule("SPELL"); !ok {
		t.Error("built-in table is missing SPELL")
	}
	if _, ok := reg.Rule("BEAST"); !ok {
		t.Error("built-in table is missing BEAST")
	}
	for _, rule := range reg.Rules() {
		if rule.Weight <= 0 {
			t.Errorf("rule %s has weight %v", rule.Name, rule.Weight)
		}
	}
}

func TestLoadRegistry(t *testing.T) {
	data := []byte(`
[[synergy]]
name = "ELF"
weight = 2.0
targets = ["Elf Synergy"]
sources = ["Elf"]
`)
	reg, err := LoadRegistry(data)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	rule, ok := reg.Rule("ELF")
	if !ok || rule.Weight != 2.0 || !rule.HasSource("Elf") || !rule.HasTarget("Elf Synergy") {
		t.Errorf("unexpected rule: %+v", rule)
	}

	if _, err := LoadRegistry([]byte("not = [valid")); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewInterface(t *testing.T) {
	reg := testRegistry(t)

	if _, ok := NewInterface(reg, "X", "Beast", 0, RangeNone); ok {
		t.Error("zero value interface should be dropped")
	}
	if _, ok := NewInterface(reg, "X", "Beast", -2, RangeNone); ok {
		t.Error("negative value interface should be dropped")
	}

	iface, ok := NewInterface(reg, "X", "Unknown Tag", 1, RangeMarker("?"))
	if !ok {
		t.Fatal("unknown tag interface should still be created")
	}
	if !iface.Directions.Empty() {
		t.Errorf("unknown tag directions = %v, want none", iface.Directions)
	}
	if iface.Range != RangeNone {
		t.Errorf("unrecognized marker should be cleared, got %q", iface.Range)
	}

	big, ok := NewInterface(reg, "X", "Beast", math.MaxInt, RangeNone)
	if !ok || big.Value != MaxValue {
		t.Errorf("oversized value = %d (ok=%v), want clamped to %d", big.Value, ok, MaxValue)
	}
}

func TestParseTagValue(t *testing.T) {
	tests := []struct {
		raw        string
		wantValue  int
		wantMarker RangeMarker
	}{
		{"3", 3, RangeNone},
		{" 2 ", 2, RangeNone},
		{"*", 1, RangeAny},
		{"+", 1, RangeAtLeastOne},
		{".", 0, RangeEmpty},
		{"2+", 2, RangeAtLeastOne},
		{"1.0", 1, RangeNone},
		{"", 0, RangeNone},
		{"lots", 0, RangeNone},
		{"-1", 0, RangeNone},
		{"1e30", 0, RangeNone},
		{"Inf", 0, RangeNone},
		{"-Inf", 0, RangeNone},
		{"NaN", 0, RangeNone},
		{"NaN+", 0, RangeAtLeastOne},
		{"9223372036854775807", 0, RangeNone},
		{"99999999999999999999", 0, RangeNone},
		{"2147483647", MaxValue, RangeNone},
		{"2147483648", 0, RangeNone},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, m := ParseTagValue(tt.raw)
			if v != tt.wantValue || m != tt.wantMarker {
				t.Errorf("ParseTagValue(%q) = (%d, %q), want (%d, %q)", tt.raw, v, m, tt.wantValue, tt.wantMarker)
			}
		})
	}
}

func TestCollection_AddAndDirection(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection(reg)
	c.Add(mustInterface(t, reg, "Wolf", "Beast", 1))
	c.Add(mustInterface(t, reg, "Hunter", "Beast Synergy", 2))
	c.Add(mustInterface(t, reg, "Rock", "Unknown", 1))

	if got := c.Synergies(); len(got) != 2 || got[0] != "BEAST" || got[1] != "HUNT" {
		t.Errorf("Synergies() = %v, want [BEAST HUNT]", got)
	}
	if got := c.InterfacesOf(Output, "BEAST"); len(got) != 1 {
		t.Errorf("BEAST outputs = %d, want 1", len(got))
	}
	if got := c.InterfacesOf(Input, "BEAST"); len(got) != 1 {
		t.Errorf("BEAST inputs = %d, want 1", len(got))
	}
	// Beast Synergy is an output of HUNT, not an input.
	if got := c.InterfacesOf(Input, "HUNT"); len(got) != 0 {
		t.Errorf("HUNT inputs = %d, want 0", len(got))
	}
	if got := c.InterfacesOf(Output, "NOPE"); got != nil {
		t.Errorf("unknown synergy should return nil, got %v", got)
	}
	if got := c.Inert(); len(got) != 1 || got[0].Owner != "Rock" {
		t.Errorf("Inert() = %v", got)
	}

	byDir := c.ByDirection(Output)
	if len(byDir) != 2 {
		t.Errorf("ByDirection(Output) has %d groups, want 2", len(byDir))
	}
}

func TestCollection_AddLastWriteWins(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection(reg)
	c.Add(mustInterface(t, reg, "Wolf", "Beast", 1))
	c.Add(mustInterface(t, reg, "Wolf", "Beast", 3))

	got := c.Interfaces("BEAST")
	if len(got) != 1 {
		t.Fatalf("bucket size = %d, want 1", len(got))
	}
	if got["Wolf"].Value != 3 {
		t.Errorf("value = %d, want 3", got["Wolf"].Value)
	}

	// A second tag of the same rule replaces the owner's entry.
	mreg := minionRegistry(t)
	m := NewCollection(mreg)
	m.Add(mustInterface(t, mreg, "Summoner", "Minion", 1))
	m.Add(mustInterface(t, mreg, "Summoner", "Summon", 2))

	bucket := m.Interfaces("MINION")
	if len(bucket) != 1 {
		t.Fatalf("MINION bucket size = %d, want 1", len(bucket))
	}
	if iface := bucket["Summoner"]; iface.Tag != "Summon" || iface.Value != 2 {
		t.Errorf("Summoner entry = %+v, want Summon=2", iface)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if got := m.InterfacesOf(Output, "MINION"); len(got) != 1 {
		t.Errorf("MINION outputs = %d, want 1", len(got))
	}
}

func TestCollection_MergeIdempotent(t *testing.T) {
	reg := testRegistry(t)
	x := NewCollection(reg)
	x.Add(mustInterface(t, reg, "Wolf", "Beast", 1))
	x.Add(mustInterface(t, reg, "Drake", "Dragon Synergy", 2))

	once := NewCollection(reg)
	once.Merge(x)

	twice := NewCollection(reg)
	twice.Merge(x)
	twice.Merge(x)

	if !once.Equal(twice) {
		t.Error("merging the same collection twice should equal merging once")
	}
	if once.Len() != x.Len() {
		t.Errorf("Len() = %d, want %d", once.Len(), x.Len())
	}

	y := NewCollection(reg)
	y.Add(mustInterface(t, reg, "Bear", "Beast", 1))

	xy := x.Clone()
	xy.Merge(y)
	yx := y.Clone()
	yx.Merge(x)
	if !xy.Equal(yx) {
		t.Error("merge should be commutative")
	}
}

func TestCollection_TagTotals(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection(reg)
	c.Add(mustInterface(t, reg, "Wolf", "Beast", 2))
	c.Add(mustInterface(t, reg, "Bear", "Beast", 1))
	// filed under BEAST and HUNT, must be counted once
	c.Add(mustInterface(t, reg, "Hunter", "Beast Synergy", 3))

	totals := c.TagTotals()
	if totals["Beast"] != 3 {
		t.Errorf("Beast total = %d, want 3", totals["Beast"])
	}
	if totals["Beast Synergy"] != 3 {
		t.Errorf("Beast Synergy total = %d, want 3", totals["Beast Synergy"])
	}
}

func TestCollection_TagTotalsSaturate(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection(reg)
	c.Add(mustInterface(t, reg, "Wolf", "Beast", MaxValue))
	c.Add(mustInterface(t, reg, "Bear", "Beast", MaxValue))
	c.Add(mustInterface(t, reg, "Fox", "Beast", 1))

	if got := c.TagTotals()["Beast"]; got != MaxValue {
		t.Errorf("Beast total = %d, want %d", got, MaxValue)
	}
}

func TestMatch(t *testing.T) {
	reg := testRegistry(t)

	a := NewCollection(reg)
	a.Add(mustInterface(t, reg, "Pack", "Beast", 1))
	a.Add(mustInterface(t, reg, "Pack", "Dragon Synergy", 1))

	b := NewCollection(reg)
	b.Add(mustInterface(t, reg, "Tamer", "Beast Synergy", 1))

	ab := Match(a, b)
	if ab.Matches["BEAST"] != 1 {
		t.Errorf("Match(a,b) BEAST = %d, want 1", ab.Matches["BEAST"])
	}
	if len(ab.Order) != 1 || ab.Order[0] != "BEAST" {
		t.Errorf("Order = %v, want [BEAST]", ab.Order)
	}
	if ab.Misses["DRAGON"]["Pack"] != 1 {
		t.Errorf("DRAGON miss for Pack = %d, want 1", ab.Misses["DRAGON"]["Pack"])
	}

	ba := Match(b, a)
	if ba.Matched() {
		t.Errorf("Match(b,a) should not match, got %v", ba.Matches)
	}
	// Tamer's Beast Synergy is a BEAST input with no partner in this direction.
	if ba.Misses["BEAST"]["Tamer"] != 1 {
		t.Errorf("BEAST miss for Tamer = %d, want 1", ba.Misses["BEAST"]["Tamer"])
	}
}

func TestMatch_CountsAreProducts(t *testing.T) {
	reg := testRegistry(t)

	a := NewCollection(reg)
	a.Add(mustInterface(t, reg, "Wolf", "Beast", 1))
	a.Add(mustInterface(t, reg, "Bear", "Beast", 1))

	b := NewCollection(reg)
	b.Add(mustInterface(t, reg, "Tamer", "Beast Synergy", 1))
	b.Add(mustInterface(t, reg, "Keeper", "Beast Synergy", 1))
	b.Add(mustInterface(t, reg, "Ranger", "Beast Synergy", 1))

	res := Match(a, b)
	if res.Matches["BEAST"] != 6 {
		t.Errorf("BEAST = %d, want 6", res.Matches["BEAST"])
	}
	if res.Total() != 6 {
		t.Errorf("Total() = %d, want 6", res.Total())
	}
}

func TestMatch_MultiTagOwner(t *testing.T) {
	reg := minionRegistry(t)

	x := NewCollection(reg)
	x.Add(mustInterface(t, reg, "Summoner", "Minion", 1))
	x.Add(mustInterface(t, reg, "Summoner", "Summon", 1))

	y := NewCollection(reg)
	y.Add(mustInterface(t, reg, "Imp", "Minion Synergy", 1))

	if got := Match(x, y).Matches["MINION"]; got != 1 {
		t.Errorf("MINION = %d, want 1", got)
	}

	// Two target-side declarations by one owner count once and miss with the
	// value of the entry that was kept.
	treg, err := NewRegistry([]Rule{
		{Name: "MINION", Weight: 1.0, SourceTags: []string{"Minion"}, TargetTags: []string{"Minion Synergy", "Minion Lord"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	lord := NewCollection(treg)
	lord.Add(mustInterface(t, treg, "Warlord", "Minion Synergy", 2))
	lord.Add(mustInterface(t, treg, "Warlord", "Minion Lord", 3))

	res := Match(lord, NewCollection(treg))
	if res.Matched() {
		t.Fatalf("unexpected matches %v", res.Matches)
	}
	if got := res.Misses["MINION"]["Warlord"]; got != 3 {
		t.Errorf("MINION miss for Warlord = %d, want 3", got)
	}
	if len(res.Misses["MINION"]) != 1 {
		t.Errorf("MINION misses = %v, want one owner", res.Misses["MINION"])
	}
}

func TestMatch_NilCollections(t *testing.T) {
	reg := testRegistry(t)
	a := NewCollection(reg)
	a.Add(mustInterface(t, reg, "Wolf", "Beast", 1))

	if res := Match(nil, a); res.Matched() || len(res.Misses) != 0 {
		t.Errorf("Match(nil, a) = %+v, want empty", res)
	}
	if res := Match(a, nil); res.Matched() {
		t.Errorf("Match(a, nil) = %+v, want no matches", res)
	}
}
