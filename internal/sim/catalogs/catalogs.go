package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownItem      = errors.New("unknown item")
	ErrUnknownSubstance = errors.New("unknown substance")
)

type ItemKind uint8

const (
	ItemNone ItemKind = iota
	ItemWater
	ItemBurrito
	ItemPickle
	ItemCoffee
	ItemEnergyDrink
	ItemMelatonin
	ItemTotem
	numItemKinds
)

type SubstanceKind uint8

const (
	SubstanceNone SubstanceKind = iota
	SubstanceCaffeine
	SubstanceSugarRush
	SubstanceElectrolytes
	SubstanceDrowsy
	numSubstanceKinds
)

var itemNames = [...]string{
	ItemNone:        "none",
	ItemWater:       "water",
	ItemBurrito:     "burrito",
	ItemPickle:      "pickle",
	ItemCoffee:      "coffee",
	ItemEnergyDrink: "energy_drink",
	ItemMelatonin:   "melatonin",
	ItemTotem:       "totem",
}

var substanceNames = [...]string{
	SubstanceNone:         "none",
	SubstanceCaffeine:     "caffeine",
	SubstanceSugarRush:    "sugar_rush",
	SubstanceElectrolytes: "electrolytes",
	SubstanceDrowsy:       "drowsy",
}

// Compile-time exhaustiveness: adding a kind without a name breaks the build.
var (
	_ = [1]struct{}{}[len(itemNames)-int(numItemKinds)]
	_ = [1]struct{}{}[len(substanceNames)-int(numSubstanceKinds)]
)

func (k ItemKind) String() string {
	if int(k) < len(itemNames) {
		return itemNames[k]
	}
	return fmt.Sprintf("item(%d)", uint8(k))
}

func (k SubstanceKind) String() string {
	if int(k) < len(substanceNames) {
		return substanceNames[k]
	}
	return fmt.Sprintf("substance(%d)", uint8(k))
}

func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ItemKind) UnmarshalText(b []byte) error {
	v, err := ParseItemKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k SubstanceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SubstanceKind) UnmarshalText(b []byte) error {
	v, err := ParseSubstanceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParseItemKind(s string) (ItemKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range itemNames {
		if n == s {
			return ItemKind(i), nil
		}
	}
	return ItemNone, fmt.Errorf("%w: %q", ErrUnknownItem, s)
}

func ParseSubstanceKind(s string) (SubstanceKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range substanceNames {
		if n == s {
			return SubstanceKind(i), nil
		}
	}
	return SubstanceNone, fmt.Errorf("%w: %q", ErrUnknownSubstance, s)
}

// AllItemKinds lists every real item kind in enum order.
func AllItemKinds() []ItemKind {
	out := make([]ItemKind, 0, numItemKinds-1)
	for k := ItemNone + 1; k < numItemKinds; k++ {
		out = append(out, k)
	}
	return out
}

// StatEffect is an additive change to the bounded player gauges.
type StatEffect struct {
	Energy   float64 `yaml:"energy,omitempty" json:"energy,omitempty"`
	Mood     float64 `yaml:"mood,omitempty" json:"mood,omitempty"`
	Thirst   float64 `yaml:"thirst,omitempty" json:"thirst,omitempty"`
	Hunger   float64 `yaml:"hunger,omitempty" json:"hunger,omitempty"`
	Bathroom float64 `yaml:"bathroom,omitempty" json:"bathroom,omitempty"`
	Speed    float64 `yaml:"speed,omitempty" json:"speed,omitempty"`
}

func (e StatEffect) Add(o StatEffect) StatEffect {
	return StatEffect{
		Energy:   e.Energy + o.Energy,
		Mood:     e.Mood + o.Mood,
		Thirst:   e.Thirst + o.Thirst,
		Hunger:   e.Hunger + o.Hunger,
		Bathroom: e.Bathroom + o.Bathroom,
		Speed:    e.Speed + o.Speed,
	}
}

func (e StatEffect) Scale(k float64) StatEffect {
	return StatEffect{
		Energy:   e.Energy * k,
		Mood:     e.Mood * k,
		Thirst:   e.Thirst * k,
		Hunger:   e.Hunger * k,
		Bathroom: e.Bathroom * k,
		Speed:    e.Speed * k,
	}
}

func (e StatEffect) IsZero() bool { return e == StatEffect{} }

type ItemDef struct {
	Kind       ItemKind      `yaml:"-" json:"kind"`
	Label      string        `yaml:"label" json:"label"`
	Consumable bool          `yaml:"consumable" json:"consumable"`
	Equippable bool          `yaml:"equippable" json:"equippable"`
	OnConsume  StatEffect    `yaml:"on_consume" json:"on_consume"`
	Substance  SubstanceKind `yaml:"substance" json:"substance"`
	Intensity  float32       `yaml:"intensity" json:"intensity"`
	Sound      string        `yaml:"sound" json:"sound"`
}

type SubstanceDef struct {
	Kind SubstanceKind `yaml:"-" json:"kind"`
	// Label is what notifications show ("caffeine kicked in").
	Label           string     `yaml:"label" json:"label"`
	DurationSeconds float32    `yaml:"duration_seconds" json:"duration_seconds"`
	SpeedPct        float64    `yaml:"speed_pct" json:"speed_pct"`
	TimeScalePct    float64    `yaml:"time_scale_pct" json:"time_scale_pct"`
	OnConsume       StatEffect `yaml:"on_consume" json:"on_consume"`
	PerSecond       StatEffect `yaml:"per_second" json:"per_second"`
}

// Catalog is the enum-indexed dispatch table for consumables.
type Catalog struct {
	Items      [numItemKinds]ItemDef
	Substances [numSubstanceKinds]SubstanceDef
	Digest     string
}

func (c *Catalog) Item(k ItemKind) (ItemDef, bool) {
	if c == nil || k == ItemNone || k >= numItemKinds {
		return ItemDef{}, false
	}
	return c.Items[k], true
}

func (c *Catalog) Substance(k SubstanceKind) (SubstanceDef, bool) {
	if c == nil || k == SubstanceNone || k >= numSubstanceKinds {
		return SubstanceDef{}, false
	}
	return c.Substances[k], true
}

// Builtin returns the stock table; consumables.yaml may override any entry.
func Builtin() *Catalog {
	c := &Catalog{}
	c.Items = [numItemKinds]ItemDef{
		ItemNone:  {},
		ItemWater: {Label: "Water", Consumable: true, OnConsume: StatEffect{Thirst: 30}, Sound: "gulp"},
		ItemBurrito: {
			Label: "Burrito", Consumable: true,
			OnConsume: StatEffect{Hunger: 35, Bathroom: -10, Mood: 3}, Sound: "munch",
		},
		ItemPickle: {
			Label: "Pickle", Consumable: true,
			OnConsume: StatEffect{Hunger: 5, Thirst: 5},
			Substance: SubstanceElectrolytes, Intensity: 1, Sound: "crunch",
		},
		ItemCoffee: {
			Label: "Coffee", Consumable: true,
			OnConsume: StatEffect{Thirst: 5, Bathroom: -5},
			Substance: SubstanceCaffeine, Intensity: 1, Sound: "gulp",
		},
		ItemEnergyDrink: {
			Label: "Energy drink", Consumable: true,
			OnConsume: StatEffect{Thirst: 10},
			Substance: SubstanceSugarRush, Intensity: 1, Sound: "fizz",
		},
		ItemMelatonin: {
			Label: "Melatonin", Consumable: true,
			Substance: SubstanceDrowsy, Intensity: 1, Sound: "pill",
		},
		ItemTotem: {Label: "Totem", Equippable: true, Sound: "chime"},
	}
	c.Substances = [numSubstanceKinds]SubstanceDef{
		SubstanceNone: {},
		SubstanceCaffeine: {
			Label: "Caffeine", DurationSeconds: 120, SpeedPct: 25,
			OnConsume: StatEffect{Energy: 15}, PerSecond: StatEffect{Mood: 0.02},
		},
		SubstanceSugarRush: {
			Label: "Sugar rush", DurationSeconds: 45, SpeedPct: 50,
			OnConsume: StatEffect{Energy: 10, Mood: 5}, PerSecond: StatEffect{Energy: -0.05},
		},
		SubstanceElectrolytes: {
			Label: "Electrolytes", DurationSeconds: 90,
			PerSecond: StatEffect{Thirst: 0.1},
		},
		SubstanceDrowsy: {
			Label: "Drowsy", DurationSeconds: 60, SpeedPct: -40, TimeScalePct: 100,
			PerSecond: StatEffect{Energy: 0.2},
		},
	}
	for k := range c.Items {
		c.Items[k].Kind = ItemKind(k)
	}
	for k := range c.Substances {
		c.Substances[k].Kind = SubstanceKind(k)
	}
	c.Digest = c.digest()
	return c
}

type fileFormat struct {
	Items      map[string]ItemDef      `yaml:"items"`
	Substances map[string]SubstanceDef `yaml:"substances"`
}

// Load applies consumables.yaml on top of Builtin. Entries must name a known kind.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("consumables.yaml: %w", err)
	}
	for name, def := range f.Items {
		k, err := ParseItemKind(name)
		if err != nil || k == ItemNone {
			return nil, fmt.Errorf("consumables.yaml: %w: %q", ErrUnknownItem, name)
		}
		def.Kind = k
		c.Items[k] = def
	}
	for name, def := range f.Substances {
		k, err := ParseSubstanceKind(name)
		if err != nil || k == SubstanceNone {
			return nil, fmt.Errorf("consumables.yaml: %w: %q", ErrUnknownSubstance, name)
		}
		def.Kind = k
		c.Substances[k] = def
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("consumables.yaml: %w", err)
	}
	c.Digest = c.digest()
	return c, nil
}

func (c *Catalog) Validate() error {
	for _, it := range c.Items[1:] {
		if it.Substance != SubstanceNone {
			if it.Substance >= numSubstanceKinds {
				return fmt.Errorf("item %s: %w", it.Kind, ErrUnknownSubstance)
			}
			if it.Intensity <= 0 {
				return fmt.Errorf("item %s: intensity must be > 0 when a substance is set", it.Kind)
			}
		}
	}
	for _, s := range c.Substances[1:] {
		if s.DurationSeconds <= 0 {
			return fmt.Errorf("substance %s: duration_seconds must be > 0", s.Kind)
		}
	}
	return nil
}

func (c *Catalog) digest() string {
	b, _ := json.Marshal(struct {
		Items      []ItemDef      `json:"items"`
		Substances []SubstanceDef `json:"substances"`
	}{c.Items[:], c.Substances[:]})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
