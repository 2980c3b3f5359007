package damage

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is the per-damage-type configuration the pipeline applies: crit and
// block multipliers plus whether this type pierces shields. Multipliers are
// configuration, not computed logic; the pipeline applies crit first, then
// block.
type Rule struct {
	Type            Type    `yaml:"type"`
	CritMultiplier  float64 `yaml:"crit_multiplier"`
	BlockMultiplier float64 `yaml:"block_multiplier"`
	// PierceShield skips shield absorption for this type (e.g. poison).
	PierceShield bool `yaml:"pierce_shield"`
}

// Validate checks the rule for values that would corrupt resolution.
func (r Rule) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("damage rule: type must not be empty")
	}
	if math.IsNaN(r.CritMultiplier) || math.IsInf(r.CritMultiplier, 0) || r.CritMultiplier < 0 {
		return fmt.Errorf("damage rule %q: crit_multiplier must be finite and >= 0, got %v", r.Type, r.CritMultiplier)
	}
	if math.IsNaN(r.BlockMultiplier) || math.IsInf(r.BlockMultiplier, 0) || r.BlockMultiplier < 0 {
		return fmt.Errorf("damage rule %q: block_multiplier must be finite and >= 0, got %v", r.Type, r.BlockMultiplier)
	}
	return nil
}

// DefaultRule is the fallback for damage types with no registered rule:
// crits double, blocks halve, shields absorb.
func DefaultRule(t Type) Rule {
	return Rule{Type: t, CritMultiplier: 2.0, BlockMultiplier: 0.5}
}

// RuleTable holds the damage-type rules keyed by type.
type RuleTable struct {
	rules map[Type]Rule
}

// NewRuleTable creates an empty table. RuleFor falls back to DefaultRule for
// every type until rules are registered.
func NewRuleTable() *RuleTable {
	return &RuleTable{rules: make(map[Type]Rule)}
}

// Register adds r to the table, replacing any existing rule for the type.
//
// Postcondition: Returns a non-nil error iff r fails validation; the table
// never holds an invalid rule.
func (t *RuleTable) Register(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	t.rules[r.Type] = r
	return nil
}

// RuleFor returns the rule for typ, or the default rule when unregistered.
func (t *RuleTable) RuleFor(typ Type) Rule {
	if r, ok := t.rules[typ]; ok {
		return r
	}
	return DefaultRule(typ)
}

// Len returns the number of registered rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// yamlRuleFile is the top-level YAML structure for rule files.
type yamlRuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRulesFromBytes parses a rule file and registers its rules into a new
// table.
//
// Precondition: data must be valid YAML with a top-level "rules" list.
// Postcondition: Returns a populated RuleTable or a non-nil error.
func LoadRulesFromBytes(data []byte) (*RuleTable, error) {
	table := NewRuleTable()
	if err := mergeRules(table, data); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadRulesFromDir reads every *.yaml file in dir and merges their rules into
// a single table. Later files win on duplicate types (lexicographic order).
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated RuleTable, or an error if any file
// fails to parse or validate.
func LoadRulesFromDir(dir string) (*RuleTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading damage rules dir %q: %w", dir, err)
	}
	table := NewRuleTable()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if err := mergeRules(table, data); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return table, nil
}

func mergeRules(table *RuleTable, data []byte) error {
	var file yamlRuleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("parsing damage rules YAML: %w", err)
	}
	for _, r := range file.Rules {
		if err := table.Register(r); err != nil {
			return err
		}
	}
	return nil
}
