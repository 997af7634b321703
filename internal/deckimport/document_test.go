package deckimport

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/synergy"
)

const yamlDoc = `
decks:
  - name: Pack
    faction: Uterra
    forgeborn: Ghyrson
    abilities:
      - name: Howl
        tags:
          Beast Synergy: 1
    cards:
      - name: Wolf
        type: Creature
        subtype: Beast
        tags:
          Beast: 2
          Free: "*"
      - name: Tamer
        tags:
          Beast Synergy: "1+"
  - name: Crypt
    faction: Nekrium
    abilities:
      - name: Raise
        tags:
          Zombie: 1
    cards:
      - name: Ghoul
        tags:
          Zombie Synergy: "."
fusions:
  - a: Pack
    b: Crypt
    active: a
    inspiration: Raise
`

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	variants, err := doc.Variants()
	if err != nil {
		t.Fatalf("Variants() error = %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(variants))
	}

	pack, ok := variants[0].(deck.Single)
	if !ok {
		t.Fatalf("variants[0] = %T, want deck.Single", variants[0])
	}
	wolf := pack.Deck.Cards[0]
	want := []deck.TagRecord{
		{Name: "Beast", Value: 2},
		{Name: "Free", Value: 1, Range: synergy.RangeAny},
	}
	if !reflect.DeepEqual(wolf.Tags, want) {
		t.Errorf("Wolf tags = %+v, want %+v", wolf.Tags, want)
	}
	if wolf.CardType != "Creature" || wolf.CardSubtype != "Beast" {
		t.Errorf("Wolf type = %q/%q", wolf.CardType, wolf.CardSubtype)
	}
	tamer := pack.Deck.Cards[1].Tags[0]
	if tamer.Value != 1 || tamer.Range != synergy.RangeAtLeastOne {
		t.Errorf("Tamer tag = %+v, want 1 with +", tamer)
	}

	fused, ok := variants[2].(deck.Fused)
	if !ok {
		t.Fatalf("variants[2] = %T, want deck.Fused", variants[2])
	}
	if fused.DeckName() != "Pack|Crypt" {
		t.Errorf("fusion name = %q, want Pack|Crypt", fused.DeckName())
	}
	if fused.Inspiration == nil || fused.Inspiration.Name != "Raise" {
		t.Errorf("inspiration = %+v, want Raise", fused.Inspiration)
	}
}

func TestParse_JSONNumericTags(t *testing.T) {
	data := `{"decks":[{"name":"Bots","faction":"Alloyin","cards":[
		{"name":"Drone","tags":{"Robot":3,"Spell Synergy":"2+","Armor":null}}]}]}`

	doc, err := Parse([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tags := doc.Decks[0].Cards[0].record().Tags
	want := []deck.TagRecord{
		{Name: "Armor", Value: 0},
		{Name: "Robot", Value: 3},
		{Name: "Spell Synergy", Value: 2, Range: synergy.RangeAtLeastOne},
	}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %+v, want %+v", tags, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no decks", `{"decks":[]}`},
		{"unnamed deck", `{"decks":[{"faction":"Uterra","cards":[]}]}`},
		{"duplicate deck", `{"decks":[{"name":"A","cards":[]},{"name":"A","cards":[]}]}`},
		{"unnamed card", `{"decks":[{"name":"A","cards":[{"tags":{}}]}]}`},
		{"unknown fusion member", `{"decks":[{"name":"A","cards":[]}],"fusions":[{"a":"A","b":"B"}]}`},
		{"bad side", `{"decks":[{"name":"A","cards":[]},{"name":"B","cards":[]}],"fusions":[{"a":"A","b":"B","active":"c"}]}`},
		{"malformed", `{"decks":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), FormatJSON); err == nil {
				t.Error("Parse() = nil error, want failure")
			}
		})
	}
}

func TestVariants_SameFactionFusionFails(t *testing.T) {
	data := `{"decks":[{"name":"A","faction":"Tempys","cards":[]},{"name":"B","faction":"Tempys","cards":[]}],
		"fusions":[{"a":"A","b":"B"}]}`
	doc, err := Parse([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := doc.Variants(); err == nil {
		t.Error("Variants() should reject a same-faction fusion")
	}
}

func TestFromVariant_RoundTrip(t *testing.T) {
	doc, err := Parse([]byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	orig, err := doc.Variant("Pack|Crypt")
	if err != nil {
		t.Fatalf("Variant() error = %v", err)
	}

	data, err := FromVariant(orig).Encode(FormatJSON)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, err := back.Variant("Pack|Crypt")
	if err != nil {
		t.Fatalf("Variant() error = %v", err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, orig)
	}
}

func TestFormatTagValue(t *testing.T) {
	tests := []struct {
		value  int
		marker synergy.RangeMarker
		want   TagValue
	}{
		{3, synergy.RangeNone, "3"},
		{1, synergy.RangeAny, "*"},
		{1, synergy.RangeAtLeastOne, "+"},
		{2, synergy.RangeAtLeastOne, "2+"},
		{0, synergy.RangeEmpty, "."},
	}
	for _, tt := range tests {
		got := FormatTagValue(tt.value, tt.marker)
		if got != tt.want {
			t.Errorf("FormatTagValue(%d, %q) = %q, want %q", tt.value, tt.marker, got, tt.want)
		}
		v, m := synergy.ParseTagValue(string(got))
		if v != tt.value || m != tt.marker {
			t.Errorf("ParseTagValue(%q) = %d, %q; want %d, %q", got, v, m, tt.value, tt.marker)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decks.yml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(doc.Decks) != 2 {
		t.Errorf("decks = %d, want 2", len(doc.Decks))
	}

	if _, err := LoadFile(filepath.Join(dir, "decks.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadFile(.txt) error = %v, want ErrUnsupportedFormat", err)
	}
	if IsDeckFile("notes.md") || !IsDeckFile("x.JSON") {
		t.Error("IsDeckFile() misclassified extensions")
	}
}
