// Package deckimport reads deck documents from YAML or JSON and turns them
// into deck variants.
package deckimport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/synergy"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml, .yml and .json.
var ErrUnsupportedFormat = errors.New("unsupported deck document format")

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// IsDeckFile reports whether path has a supported extension.
func IsDeckFile(path string) bool {
	_, err := FormatFor(path)
	return err == nil
}

// TagValue is the raw value of a tag, e.g. "2", "*", "1+" or ".". JSON
// documents may also give it as a number.
type TagValue string

// UnmarshalJSON accepts strings, numbers and null.
func (v *TagValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TagValue(s)
		return nil
	}
	*v = TagValue(data)
	return nil
}

// CardDoc is a card or forgeborn ability.
type CardDoc struct {
	Name    string              `json:"name" yaml:"name"`
	Faction string              `json:"faction,omitempty" yaml:"faction,omitempty"`
	Type    string              `json:"type,omitempty" yaml:"type,omitempty"`
	Subtype string              `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Tags    map[string]TagValue `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DeckDoc is a single deck.
type DeckDoc struct {
	Name      string    `json:"name" yaml:"name"`
	Faction   string    `json:"faction" yaml:"faction"`
	Forgeborn string    `json:"forgeborn,omitempty" yaml:"forgeborn,omitempty"`
	Abilities []CardDoc `json:"abilities,omitempty" yaml:"abilities,omitempty"`
	Cards     []CardDoc `json:"cards" yaml:"cards"`
}

// FusionDoc fuses two decks of the same document by name.
type FusionDoc struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	A           string `json:"a" yaml:"a"`
	B           string `json:"b" yaml:"b"`
	Active      string `json:"active,omitempty" yaml:"active,omitempty"`
	Inspiration string `json:"inspiration,omitempty" yaml:"inspiration,omitempty"`
}

// Document is the top level of a deck file.
type Document struct {
	Decks   []DeckDoc   `json:"decks" yaml:"decks"`
	Fusions []FusionDoc `json:"fusions,omitempty" yaml:"fusions,omitempty"`
}

// LoadFile reads and parses a deck document, choosing the format by extension.
func LoadFile(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Parse decodes a document and checks that names are present and unique.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode writes the document in the given format.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.Marshal(d)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Validate checks deck names and fusion references.
func (d *Document) Validate() error {
	if len(d.Decks) == 0 {
		return errors.New("document has no decks")
	}
	names := make(map[string]struct{}, len(d.Decks))
	for i, dk := range d.Decks {
		if strings.TrimSpace(dk.Name) == "" {
			return fmt.Errorf("deck %d has no name", i)
		}
		if _, dup := names[dk.Name]; dup {
			return fmt.Errorf("duplicate deck name %q", dk.Name)
		}
		names[dk.Name] = struct{}{}
		for j, c := range dk.Cards {
			if strings.TrimSpace(c.Name) == "" {
				return fmt.Errorf("deck %q: card %d has no name", dk.Name, j)
			}
		}
	}
	for i, f := range d.Fusions {
		for _, ref := range []string{f.A, f.B} {
			if _, ok := names[ref]; !ok {
				return fmt.Errorf("fusion %d references unknown deck %q", i, ref)
			}
		}
		if _, err := deck.ParseSide(f.Active); err != nil {
			return fmt.Errorf("fusion %d: %w", i, err)
		}
	}
	return nil
}

// Variants returns every deck as a Single followed by every fusion.
func (d *Document) Variants() ([]deck.Variant, error) {
	records := d.records()
	out := make([]deck.Variant, 0, len(d.Decks)+len(d.Fusions))
	for _, dk := range d.Decks {
		out = append(out, deck.Single{Deck: records[dk.Name]})
	}
	for _, f := range d.Fusions {
		fused, err := fusion(f, records)
		if err != nil {
			return nil, err
		}
		out = append(out, fused)
	}
	return out, nil
}

// Variant returns the deck or fusion called name.
func (d *Document) Variant(name string) (deck.Variant, error) {
	variants, err := d.Variants()
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		if v.DeckName() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no deck named %q in document", name)
}

func (d *Document) records() map[string]deck.Record {
	out := make(map[string]deck.Record, len(d.Decks))
	for _, dk := range d.Decks {
		out[dk.Name] = dk.record()
	}
	return out
}

func fusion(f FusionDoc, records map[string]deck.Record) (deck.Fused, error) {
	a, ok := records[f.A]
	if !ok {
		return deck.Fused{}, fmt.Errorf("unknown deck %q", f.A)
	}
	b, ok := records[f.B]
	if !ok {
		return deck.Fused{}, fmt.Errorf("unknown deck %q", f.B)
	}
	side, err := deck.ParseSide(f.Active)
	if err != nil {
		return deck.Fused{}, err
	}

	var inspiration *deck.AbilityRecord
	if f.Inspiration != "" {
		other := b
		if side == deck.SideB {
			other = a
		}
		for i := range other.ActiveAbilities {
			if other.ActiveAbilities[i].Name == f.Inspiration {
				ab := other.ActiveAbilities[i]
				inspiration = &ab
				break
			}
		}
		if inspiration == nil {
			return deck.Fused{}, fmt.Errorf("inspiration %q is not an ability of %q", f.Inspiration, other.Name)
		}
	}
	return deck.NewFused(f.Name, a, b, side, inspiration)
}

func (dk DeckDoc) record() deck.Record {
	rec := deck.Record{
		Name:      dk.Name,
		Faction:   dk.Faction,
		Forgeborn: dk.Forgeborn,
		Cards:     make([]deck.CardRecord, 0, len(dk.Cards)),
	}
	for _, c := range dk.Cards {
		rec.Cards = append(rec.Cards, c.record())
	}
	for _, ab := range dk.Abilities {
		rec.ActiveAbilities = append(rec.ActiveAbilities, ab.record())
	}
	return rec
}

func (c CardDoc) record() deck.CardRecord {
	rec := deck.CardRecord{
		Name:        c.Name,
		Faction:     c.Faction,
		CardType:    c.Type,
		CardSubtype: c.Subtype,
	}
	names := make([]string, 0, len(c.Tags))
	for name := range c.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, marker := synergy.ParseTagValue(string(c.Tags[name]))
		rec.Tags = append(rec.Tags, deck.TagRecord{Name: name, Value: value, Range: marker})
	}
	return rec
}

// FromVariant builds a document that holds exactly the decks of v. Parsing
// it back and asking for Variant(v.DeckName()) yields an equivalent variant.
func FromVariant(v deck.Variant) *Document {
	doc := &Document{}
	for _, m := range v.Members() {
		doc.Decks = append(doc.Decks, deckDoc(m))
	}
	if f, ok := v.(deck.Fused); ok {
		fd := FusionDoc{Name: f.Name, A: f.A.Name, B: f.B.Name, Active: f.ActiveSide.String()}
		if f.Inspiration != nil {
			fd.Inspiration = f.Inspiration.Name
		}
		doc.Fusions = append(doc.Fusions, fd)
	}
	return doc
}

func deckDoc(rec deck.Record) DeckDoc {
	dk := DeckDoc{
		Name:      rec.Name,
		Faction:   rec.Faction,
		Forgeborn: rec.Forgeborn,
		Cards:     make([]CardDoc, 0, len(rec.Cards)),
	}
	for _, c := range rec.Cards {
		dk.Cards = append(dk.Cards, cardDoc(c))
	}
	for _, ab := range rec.ActiveAbilities {
		dk.Abilities = append(dk.Abilities, cardDoc(ab))
	}
	return dk
}

func cardDoc(c deck.CardRecord) CardDoc {
	cd := CardDoc{Name: c.Name, Faction: c.Faction, Type: c.CardType, Subtype: c.CardSubtype}
	if len(c.Tags) > 0 {
		cd.Tags = make(map[string]TagValue, len(c.Tags))
		for _, t := range c.Tags {
			cd.Tags[t.Name] = FormatTagValue(t.Value, t.Range)
		}
	}
	return cd
}

// FormatTagValue is the inverse of synergy.ParseTagValue.
func FormatTagValue(value int, marker synergy.RangeMarker) TagValue {
	switch marker {
	case synergy.RangeEmpty:
		return TagValue(synergy.RangeEmpty)
	case synergy.RangeAny, synergy.RangeAtLeastOne:
		if value == 1 {
			return TagValue(marker)
		}
		return TagValue(strconv.Itoa(value) + string(marker))
	}
	return TagValue(strconv.Itoa(value))
}
