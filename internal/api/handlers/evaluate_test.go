package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade/internal/cache"
	"github.com/irfndi/neuratrade/internal/ruleplan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePriceLookup struct {
	entry cache.PriceEntry
	ok    bool
}

func (f fakePriceLookup) Get(ctx context.Context, ticker string) (cache.PriceEntry, bool) {
	return f.entry, f.ok
}

// fakeDecisionStore is an in-memory DecisionStore used only by these
// tests; it records the last saved decision and every audit entry.
type fakeDecisionStore struct {
	stateKey      string
	positionState string
	auditEvents   []string
	saveErr       error
	loadErr       error
}

func (f *fakeDecisionStore) LoadDecisionState(ctx context.Context, stockID int64) (string, json.RawMessage, error) {
	return f.stateKey, nil, f.loadErr
}

func (f *fakeDecisionStore) SaveDecision(ctx context.Context, stockID int64, stateKey string, decision interface{}) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stateKey = stateKey
	return nil
}

func (f *fakeDecisionStore) AppendAuditLog(ctx context.Context, stockID *int64, eventType string, payload interface{}) (string, error) {
	f.auditEvents = append(f.auditEvents, eventType)
	return "audit-1", nil
}

func (f *fakeDecisionStore) UpdatePositionState(ctx context.Context, stockID int64, positionState string) error {
	f.positionState = positionState
	return nil
}

func newEvaluateRouter(store DecisionStore) *gin.Engine {
	return newEvaluateRouterWithPrices(store, nil)
}

func newEvaluateRouterWithPrices(store DecisionStore, prices PriceLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewEvaluateHandler(store, prices)
	router := gin.New()
	router.POST("/v1/stocks/:id/evaluate", h.Evaluate)
	return router
}

func sampleBars() []BarInput {
	bars := make([]BarInput, 0, 25)
	price := 100.0
	for i := 0; i < 25; i++ {
		price += 1
		bars = append(bars, BarInput{
			Date:  dateAt(i),
			Open:  price,
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		})
	}
	return bars
}

func dateAt(i int) string {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, i).
		Format("2006-01-02")
}

func buyEntryPlan() ruleplan.Plan {
	return ruleplan.Plan{
		Ticker:     "AAPL",
		Indicators: []ruleplan.IndicatorSpec{{ID: "sma5", Type: "MA", Period: 5}},
		EntryRules: []ruleplan.EntryRule{{
			ID:            "above-sma",
			ConditionExpr: "Close > ind.sma5",
		}},
		ExitRules: ruleplan.ExitRuleSet{
			Conditions: []ruleplan.ExitRule{{ID: "below-sma", ConditionExpr: "Close < ind.sma5"}},
		},
	}
}

func TestEvaluateHandler_BuySignalPersistsAndUpdatesPosition(t *testing.T) {
	store := &fakeDecisionStore{}
	router := newEvaluateRouter(store)

	reqBody := EvaluateRequest{
		Bars:          sampleBars(),
		Indicators:    []IndicatorDefInput{{ID: "sma5", Type: "MA", Period: 5}},
		Plan:          buyEntryPlan(),
		PositionState: ruleplan.PositionFlat,
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/42/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ruleplan.ActionBuy, resp.Action)
	assert.True(t, resp.Changed)
	assert.Equal(t, ruleplan.PositionHolding, store.positionState)
	assert.Contains(t, store.auditEvents, "decision_emitted")
}

func TestEvaluateHandler_InvalidPositionStateIsClientError(t *testing.T) {
	store := &fakeDecisionStore{}
	router := newEvaluateRouter(store)

	reqBody := EvaluateRequest{
		Bars:          sampleBars(),
		Plan:          buyEntryPlan(),
		PositionState: "sideways",
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/42/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.auditEvents)
}

func TestEvaluateHandler_MalformedStockIDIsClientError(t *testing.T) {
	store := &fakeDecisionStore{}
	router := newEvaluateRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/not-a-number/evaluate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateHandler_SaveFailureIsInternalError(t *testing.T) {
	store := &fakeDecisionStore{saveErr: assert.AnError}
	router := newEvaluateRouter(store)

	reqBody := EvaluateRequest{
		Bars:          sampleBars(),
		Plan:          buyEntryPlan(),
		PositionState: ruleplan.PositionFlat,
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/1/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEvaluateHandler_FallsBackToCachedPriceWhenCurrentPriceOmitted(t *testing.T) {
	store := &fakeDecisionStore{}
	lookup := fakePriceLookup{entry: cache.PriceEntry{Ticker: "AAPL", Price: decimal.NewFromInt(500)}, ok: true}
	router := newEvaluateRouterWithPrices(store, lookup)

	reqBody := EvaluateRequest{
		Bars:          sampleBars(),
		Indicators:    []IndicatorDefInput{{ID: "sma5", Type: "MA", Period: 5}},
		Plan:          buyEntryPlan(),
		PositionState: ruleplan.PositionFlat,
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/7/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ruleplan.ActionBuy, resp.Action)
}
