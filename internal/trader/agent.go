package trader

import (
	"errors"
	"fmt"
	"sort"

	"prophetagent/internal/market"
)

// ErrUnknownVariant is returned for agent names missing from the variant table.
var ErrUnknownVariant = errors.New("unknown agent variant")

// DefaultMaxMarketsPerRun applies when a variant leaves its cap unset.
const DefaultMaxMarketsPerRun = 5

// Variant binds a deployable agent name to its model and per-run market cap.
type Variant struct {
	Name             string
	Model            string
	MaxMarketsPerRun int
}

// VariantTable maps agent names to variants.
type VariantTable map[string]Variant

// DefaultVariants returns the built-in agents. The GPT-4 variants are limited
// to one market per run because of their cost.
func DefaultVariants() VariantTable {
	return VariantTable{
		"prophet_gpt3":       {Name: "prophet_gpt3", Model: "gpt-3.5-turbo-0125", MaxMarketsPerRun: 5},
		"prophet_gpt4":       {Name: "prophet_gpt4", Model: "gpt-4-0125-preview", MaxMarketsPerRun: 1},
		"prophet_gpt4_final": {Name: "prophet_gpt4_final", Model: "gpt-4-turbo-2024-04-09", MaxMarketsPerRun: 1},
		"olas_embedding_oa":  {Name: "olas_embedding_oa", Model: "gpt-3.5-turbo-0125", MaxMarketsPerRun: 5},
	}
}

// Override replaces the model and/or cap of name, adding the variant if it
// does not exist. Zero values keep the existing setting.
func (t VariantTable) Override(name, model string, maxMarkets int) error {
	v, ok := t[name]
	if !ok {
		if model == "" {
			return fmt.Errorf("agent %q: model is required for a new variant", name)
		}
		v = Variant{Name: name, MaxMarketsPerRun: DefaultMaxMarketsPerRun}
	}
	if model != "" {
		v.Model = model
	}
	if maxMarkets > 0 {
		v.MaxMarketsPerRun = maxMarkets
	}
	t[name] = v
	return nil
}

// Lookup returns the variant registered under name.
func (t VariantTable) Lookup(name string) (Variant, error) {
	v, ok := t[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownVariant, name, t.Names())
	}
	return v, nil
}

// Names returns the registered agent names, sorted.
func (t VariantTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Agent is one configured trading policy: selection, answering and sizing
// for a single variant.
type Agent struct {
	Variant  Variant
	Selector *Selector
	Resolver *Resolver
	Sizer    *Sizer
}

// NewAgent wires the policy for variant around oracle and the per-platform
// history providers.
func NewAgent(variant Variant, oracle Oracle, history map[market.Platform]HistoryProvider) *Agent {
	return &Agent{
		Variant:  variant,
		Selector: NewSelector(history, oracle, variant.MaxMarketsPerRun),
		Resolver: NewResolver(oracle),
		Sizer:    NewSizer(),
	}
}
