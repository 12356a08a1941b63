// Package ruleplan implements the rule plan evaluator: given a parsed
// plan, an expression context/function table, and a position state,
// it selects an entry or exit decision and computes a deterministic
// state key for change detection.
package ruleplan

// Plan is the parsed form of a rule plan document (§6's JSON shape).
type Plan struct {
	Ticker           string            `json:"ticker"`
	IndicatorPolicy  IndicatorPolicy   `json:"indicator_policy"`
	Indicators       []IndicatorSpec   `json:"indicators"`
	EntryRules       []EntryRule       `json:"entry_rules"`
	ExitRules        ExitRuleSet       `json:"exit_rules"`
}

// IndicatorPolicy carries default inheritance for indicator metadata.
type IndicatorPolicy struct {
	Timeframe  string `json:"timeframe"`
	PriceField string `json:"price_field"`
	UseEODOnly bool   `json:"use_eod_only"`
}

// IndicatorSpec mirrors an IndicatorDef as authored in a plan document.
type IndicatorSpec struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Period     int            `json:"period"`
	MAType     string         `json:"ma_type,omitempty"`
	PriceField string         `json:"price_field,omitempty"`
	Timeframe  string         `json:"timeframe,omitempty"`
	UseEODOnly *bool          `json:"use_eod_only,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// EntryRule is one candidate buy rule, eligible when every constraint
// holds and firing when its condition evaluates truthy.
type EntryRule struct {
	ID              string      `json:"id"`
	Priority        *int        `json:"priority,omitempty"`
	Constraints     []Condition `json:"constraints,omitempty"`
	ConstraintsExpr []string    `json:"constraints_expr,omitempty"`
	Condition       *Condition  `json:"condition,omitempty"`
	ConditionExpr   string      `json:"condition_expr,omitempty"`
}

// ExitRuleSet is the OR-joined collection of exit conditions evaluated
// while holding a position.
type ExitRuleSet struct {
	Conditions []ExitRule `json:"conditions"`
}

// ExitRule is one candidate sell rule.
type ExitRule struct {
	ID            string     `json:"id"`
	Condition     *Condition `json:"condition,omitempty"`
	ConditionExpr string     `json:"condition_expr,omitempty"`
}

// Condition is the structured mini-language node (§4.5): composite
// all/any/not, or an atomic {op,left,right} comparison against context
// keys. Exactly one of All/Any/Not/Op should be set.
type Condition struct {
	All   []Condition `json:"all,omitempty"`
	Any   []Condition `json:"any,omitempty"`
	Not   *Condition  `json:"not,omitempty"`
	Op    string      `json:"op,omitempty"`
	Left  string      `json:"left,omitempty"`
	Right string      `json:"right,omitempty"`
}

// Reason is one entry in a Decision's reason list. SourceSet records
// whether the rule that produced this reason carries a source key at
// all: ENTRY_TRIGGERED/EXIT_TRIGGERED always set one (even "" for an
// id-less rule), while ..._CONDITION_NOT_MET reasons never do. The
// distinction matters for BuildStateKey, which must reproduce the
// original's key presence exactly, not just its value.
type Reason struct {
	Code      string `json:"code"`
	Source    string `json:"source,omitempty"`
	SourceSet bool   `json:"-"`
}

// Decision is the output of evaluating a plan: ALLOW/BLOCK, the
// resulting action, the deterministic state key, and ordered reasons.
type Decision struct {
	Decision string   `json:"decision"`
	Action   string   `json:"action"`
	StateKey string   `json:"state_key"`
	Reasons  []Reason `json:"reasons"`
}

const (
	DecisionAllow = "ALLOW"
	DecisionBlock = "BLOCK"

	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionNone = "NONE"

	PositionFlat    = "flat"
	PositionHolding = "holding"
)
