package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

// Rule maps summary/title keywords to a mood and/or trope assignment.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Mood     string   `yaml:"mood,omitempty"`
	Trope    string   `yaml:"trope,omitempty"`
}

// RuleSet is an ordered list of recategorization rules. Earlier rules win.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules covers the most common trope and mood signals. Used when no
// rules file is configured.
var DefaultRules = &RuleSet{Rules: []Rule{
	{Keywords: []string{"enemies", "rival", "nemesis"}, Trope: "enemies-to-lovers", Mood: "angsty"},
	{Keywords: []string{"best friend", "childhood friend"}, Trope: "friends-to-lovers", Mood: "heartwarming"},
	{Keywords: []string{"second chance", "reunited", "years later"}, Trope: "second-chance", Mood: "angsty"},
	{Keywords: []string{"fake dating", "fake relationship", "pretend"}, Trope: "fake-dating", Mood: "whimsical"},
	{Keywords: []string{"grumpy", "sunshine"}, Trope: "grumpy-sunshine", Mood: "cozy"},
	{Keywords: []string{"snowed in", "stranded", "one bed"}, Trope: "forced-proximity", Mood: "cozy"},
	{Keywords: []string{"small town", "village", "bakery"}, Trope: "small-town", Mood: "cozy"},
	{Keywords: []string{"arranged marriage", "marriage of convenience"}, Trope: "marriage-of-convenience", Mood: "steamy"},
}}

// LoadRules reads a rules file in YAML format.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}
	return &rs, nil
}

// Apply fills the book's missing mood and trope from the first matching
// rule. Existing assignments are never overwritten. Returns true when the
// book changed.
func (rs *RuleSet) Apply(book *catalog.Book) bool {
	if book.Mood != "" && book.Trope != "" {
		return false
	}

	haystack := strings.ToLower(book.Title + " " + book.Summary)
	changed := false

	for _, rule := range rs.Rules {
		if !matchAny(haystack, rule.Keywords) {
			continue
		}
		if book.Mood == "" && rule.Mood != "" {
			book.Mood = rule.Mood
			changed = true
		}
		if book.Trope == "" && rule.Trope != "" {
			book.Trope = rule.Trope
			changed = true
		}
		if book.Mood != "" && book.Trope != "" {
			break
		}
	}
	return changed
}

func matchAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Recategorizer applies a rule set over catalog books missing a mood or
// trope assignment.
type Recategorizer struct {
	store *catalog.Store
	rules *RuleSet
}

// NewRecategorizer creates a Recategorizer. A nil rules set uses
// DefaultRules.
func NewRecategorizer(store *catalog.Store, rules *RuleSet) *Recategorizer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Recategorizer{store: store, rules: rules}
}

// Result summarizes one recategorization pass.
type Result struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// Run scans up to limit unclassified books and persists any new mood/trope
// assignments. Per-record failures are logged and do not abort the pass.
func (r *Recategorizer) Run(ctx context.Context, limit int) (Result, error) {
	var result Result

	books, err := r.store.ListMissingCategories(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("listing unclassified books: %w", err)
	}

	for i := range books {
		result.Scanned++
		book := &books[i]
		if !r.rules.Apply(book) {
			continue
		}
		if err := r.store.UpdateBook(ctx, book); err != nil {
			slog.Warn("Failed to persist recategorization", "book_id", book.ID, "error", err)
			continue
		}
		result.Updated++
		slog.Debug("Recategorized book", "book_id", book.ID, "mood", book.Mood, "trope", book.Trope)
	}

	return result, nil
}
