package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tally/internal/core"
)

// defaultRules cover the common spending buckets as keyword alternations.
// They are seeded only into an empty classifier.
var defaultRules = []core.CategoryRule{
	{Pattern: `lunch|dinner|breakfast|grocer|supermarket|restaurant|cafe|coffee|food|pizza`, Category: "Food"},
	{Pattern: `bus|train|metro|taxi|uber|fuel|petrol|parking|transport`, Category: "Transport"},
	{Pattern: `electric|water|internet|phone|utility|utilities`, Category: "Utilities"},
	{Pattern: `rent|mortgage|lease`, Category: "Rent"},
	{Pattern: `doctor|pharmacy|medicine|dentist|hospital|health`, Category: "Health"},
	{Pattern: `cinema|movie|concert|game|netflix|spotify|entertainment`, Category: "Entertainment"},
	{Pattern: `clothes|clothing|shoes|apparel`, Category: "Clothing"},
	{Pattern: `salary|paycheck|wage|income`, Category: "Income"},
	{Pattern: `bonus|refund|cashback`, Category: "Bonus"},
}

// SeedDefaults installs the default rule set. It is idempotent and never
// overrides user rules: it does nothing unless the classifier is empty.
func (c *Classifier) SeedDefaults() {
	if len(c.rules) > 0 {
		return
	}
	for _, r := range defaultRules {
		// Default patterns are constants and always compile.
		_ = c.AddRule(r.Pattern, r.Category)
	}
}

type ruleFile struct {
	Rules []struct {
		Pattern  string `yaml:"pattern"`
		Category string `yaml:"category"`
	} `yaml:"rules"`
}

// LoadFile seeds rules from a YAML file in file order. Patterns already
// present are left untouched, matching the seeding contract. Returns the
// number of rules added.
func (c *Classifier) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return 0, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	present := make(map[string]struct{}, len(c.rules))
	for _, r := range c.rules {
		present[r.Pattern] = struct{}{}
	}
	added := 0
	for _, r := range rf.Rules {
		if _, ok := present[r.Pattern]; ok {
			continue
		}
		if err := c.AddRule(r.Pattern, r.Category); err != nil {
			return added, err
		}
		present[r.Pattern] = struct{}{}
		added++
	}
	return added, nil
}
