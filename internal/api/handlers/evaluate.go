package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade/internal/cache"
	"github.com/irfndi/neuratrade/internal/exprlang"
	"github.com/irfndi/neuratrade/internal/indicators"
	"github.com/irfndi/neuratrade/internal/middleware"
	"github.com/irfndi/neuratrade/internal/ruleplan"
	"github.com/shopspring/decimal"
)

// PriceLookup is the live intraday-price source EvaluateHandler
// consults when a request omits current_price, letting the evaluator
// use a fresher price than the last bar's close without requiring
// every caller to fetch and forward it themselves.
type PriceLookup interface {
	Get(ctx context.Context, ticker string) (cache.PriceEntry, bool)
}

// DecisionStore is the persistence surface EvaluateHandler needs: load
// the prior state key for change detection, then save the new
// decision and append an audit entry.
type DecisionStore interface {
	LoadDecisionState(ctx context.Context, stockID int64) (string, json.RawMessage, error)
	SaveDecision(ctx context.Context, stockID int64, stateKey string, decision interface{}) error
	AppendAuditLog(ctx context.Context, stockID *int64, eventType string, payload interface{}) (string, error)
	UpdatePositionState(ctx context.Context, stockID int64, positionState string) error
}

// EvaluateHandler serves POST /v1/stocks/:id/evaluate.
type EvaluateHandler struct {
	store  DecisionStore
	prices PriceLookup
}

// NewEvaluateHandler constructs an EvaluateHandler. prices may be nil,
// in which case current_price must be supplied on every request or the
// evaluator falls back to the latest bar's close.
func NewEvaluateHandler(store DecisionStore, prices PriceLookup) *EvaluateHandler {
	return &EvaluateHandler{store: store, prices: prices}
}

// BarInput is one bar of the request body, ascending by date.
type BarInput struct {
	Date          string  `json:"date" binding:"required"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close" binding:"required"`
	AdjustedClose *float64 `json:"adjusted_close,omitempty"`
	Volume        float64 `json:"volume"`
}

// IndicatorDefInput is one indicator definition backing the plan.
type IndicatorDefInput struct {
	ID         string `json:"id" binding:"required"`
	Type       string `json:"type" binding:"required"`
	Period     int    `json:"period"`
	MAType     string `json:"ma_type,omitempty"`
	PriceField string `json:"price_field,omitempty"`
}

// EvaluateRequest is the body of POST /v1/stocks/:id/evaluate, mirroring
// spec.md §6's core call inputs.
type EvaluateRequest struct {
	Bars          []BarInput          `json:"bars" binding:"required,min=1"`
	Indicators    []IndicatorDefInput `json:"indicators"`
	Plan          ruleplan.Plan       `json:"plan" binding:"required"`
	PositionState string              `json:"position_state" binding:"required"`
	CurrentPrice  *float64            `json:"current_price,omitempty"`
}

// EvaluateResponse is the body of a successful evaluation, plus
// whether the decision changed from what was previously persisted.
type EvaluateResponse struct {
	ruleplan.Decision
	Changed bool `json:"changed"`
}

// Evaluate runs the rule plan against the supplied bars and position
// state, persists the resulting decision, and reports whether it
// differs from the previously stored state key for this stock.
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	stockID, ok := parseStockID(c)
	if !ok {
		return
	}

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bars, err := toEngineBars(req.Bars)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	defs := toEngineDefs(req.Indicators)

	var currentPrice *decimal.Decimal
	if req.CurrentPrice != nil {
		d := decimal.NewFromFloat(*req.CurrentPrice)
		currentPrice = &d
	} else if h.prices != nil && req.Plan.Ticker != "" {
		if entry, ok := h.prices.Get(c.Request.Context(), req.Plan.Ticker); ok {
			currentPrice = &entry.Price
		}
	}

	ctx, err := exprlang.BuildContext(bars, defs, currentPrice)
	if err != nil {
		h.respondEvaluationError(c, err)
		return
	}
	funcs := exprlang.BuildFunctions(bars)

	decision, err := ruleplan.Evaluate(req.Plan, ctx, funcs, req.PositionState)
	if err != nil {
		h.respondEvaluationError(c, err)
		return
	}

	reqCtx := c.Request.Context()
	priorStateKey, _, loadErr := h.store.LoadDecisionState(reqCtx, stockID)
	if loadErr != nil {
		middleware.RecordError(c, loadErr, "load prior decision state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prior decision state"})
		return
	}
	changed := priorStateKey != decision.StateKey

	if err := h.store.SaveDecision(reqCtx, stockID, decision.StateKey, decision); err != nil {
		middleware.RecordError(c, err, "persist decision")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist decision"})
		return
	}
	if _, err := h.store.AppendAuditLog(reqCtx, &stockID, "decision_emitted", decision); err != nil {
		middleware.RecordError(c, err, "append audit log")
	}
	if decision.Action == ruleplan.ActionBuy {
		_ = h.store.UpdatePositionState(reqCtx, stockID, ruleplan.PositionHolding)
	} else if decision.Action == ruleplan.ActionSell {
		_ = h.store.UpdatePositionState(reqCtx, stockID, ruleplan.PositionFlat)
	}

	c.JSON(http.StatusOK, EvaluateResponse{Decision: decision, Changed: changed})
}

// respondEvaluationError maps the two-tier error model of spec.md §7:
// a FatalError is the caller's contract violation (4xx, not persisted);
// anything else is an unexpected internal failure (5xx, captured).
func (h *EvaluateHandler) respondEvaluationError(c *gin.Context, err error) {
	var fatal *exprlang.FatalError
	if errors.As(err, &fatal) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	middleware.RecordError(c, err, "evaluate rule plan")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func toEngineBars(in []BarInput) ([]indicators.Bar, error) {
	out := make([]indicators.Bar, len(in))
	for i, b := range in {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, errors.New("bars[" + strconv.Itoa(i) + "].date must be YYYY-MM-DD")
		}
		bar := indicators.Bar{
			Date:   date,
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: decimal.NewFromFloat(b.Volume),
		}
		if b.AdjustedClose != nil {
			bar.AdjustedClose = decimal.NewFromFloat(*b.AdjustedClose)
			bar.HasAdjustedClose = true
		}
		out[i] = bar
	}
	return out, nil
}

func toEngineDefs(in []IndicatorDefInput) []indicators.Def {
	out := make([]indicators.Def, len(in))
	for i, d := range in {
		priceField := indicators.PriceFieldClose
		if d.PriceField == string(indicators.PriceFieldAdjustedClose) {
			priceField = indicators.PriceFieldAdjustedClose
		}
		maType := indicators.MATypeSMA
		if d.MAType == string(indicators.MATypeEMA) {
			maType = indicators.MATypeEMA
		}
		out[i] = indicators.Def{
			ID:         d.ID,
			Kind:       indicators.Type(d.Type),
			Period:     d.Period,
			MAType:     maType,
			PriceField: priceField,
		}
	}
	return out
}
