package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade/internal/exprlang"
	"github.com/irfndi/neuratrade/internal/ruleplan"
)

// RulePlanHandler serves plan-authoring endpoints: structural
// validation only, never evaluation (spec.md §6).
type RulePlanHandler struct{}

// NewRulePlanHandler constructs a RulePlanHandler.
func NewRulePlanHandler() *RulePlanHandler {
	return &RulePlanHandler{}
}

// ValidateResponse reports whether a submitted plan is well-formed.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate parses every expression embedded in the plan
// (constraints_expr, condition_expr) and confirms every indicator
// referenced by ind.<id> has a matching definition. It does not
// evaluate the plan against any data.
func (h *RulePlanHandler) Validate(c *gin.Context) {
	var plan ruleplan.Plan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var errs []string
	for _, err := range validatePlan(plan) {
		errs = append(errs, err.Error())
	}

	c.JSON(http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: errs})
}

func validatePlan(plan ruleplan.Plan) []error {
	var errs []error

	definedIDs := make(map[string]bool, len(plan.Indicators))
	for _, def := range plan.Indicators {
		if def.ID == "" {
			errs = append(errs, fmt.Errorf("indicator definition missing id"))
			continue
		}
		definedIDs[def.ID] = true
		switch def.Type {
		case "MA", "RSI", "VWAP":
		default:
			errs = append(errs, fmt.Errorf("indicator %q: unsupported type %q", def.ID, def.Type))
		}
		if def.Period <= 0 {
			errs = append(errs, fmt.Errorf("indicator %q: period must be positive", def.ID))
		}
	}

	checkExpr := func(source, expr string) {
		if expr == "" {
			return
		}
		if _, err := exprlang.Parse(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source, err))
		}
	}

	for _, rule := range plan.EntryRules {
		for _, expr := range rule.ConstraintsExpr {
			checkExpr(fmt.Sprintf("entry_rules[%s].constraints_expr", rule.ID), expr)
		}
		checkExpr(fmt.Sprintf("entry_rules[%s].condition_expr", rule.ID), rule.ConditionExpr)
	}
	for _, rule := range plan.ExitRules.Conditions {
		checkExpr(fmt.Sprintf("exit_rules[%s].condition_expr", rule.ID), rule.ConditionExpr)
	}

	if len(plan.EntryRules) == 0 {
		errs = append(errs, fmt.Errorf("plan must define at least one entry rule"))
	}

	return errs
}
