package entity

import (
	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/NikGor/archie-backend/core/errors"
)

// CostPrecision number of fractional digits kept for costs, NUMERIC(10,6)
const CostPrecision = 6

// UsageTrace token and cost accounting of one language-model call.
// TotalTokens == InputTokens + OutputTokens is expected but left to the caller.
type UsageTrace struct {
	Model                 string          `json:"model"`
	InputTokens           int64           `json:"input_tokens"`
	InputCachedTokens     int64           `json:"input_cached_tokens"`
	OutputTokens          int64           `json:"output_tokens"`
	OutputReasoningTokens int64           `json:"output_reasoning_tokens"`
	TotalTokens           int64           `json:"total_tokens"`
	TotalCost             decimal.Decimal `json:"total_cost"`
}

// Validate checks that no counter or cost is negative
func (u *UsageTrace) Validate() error {
	if u == nil {
		return nil
	}
	if u.InputTokens < 0 || u.InputCachedTokens < 0 || u.OutputTokens < 0 ||
		u.OutputReasoningTokens < 0 || u.TotalTokens < 0 {
		return errors.New(errors.ErrInvalidParameter, "llm_trace token counts must be non-negative")
	}
	if u.TotalCost.IsNegative() {
		return errors.New(errors.ErrInvalidParameter, "llm_trace total_cost must be non-negative")
	}
	return nil
}

// EncodeUsageTrace serializes a trace into the JSON blob form. nil encodes to nil.
func EncodeUsageTrace(u *UsageTrace) ([]byte, error) {
	if u == nil {
		return nil, nil
	}
	return sonic.Marshal(u)
}

// DecodeUsageTrace parses the JSON blob form. Empty input and JSON null decode to nil.
func DecodeUsageTrace(data []byte) (*UsageTrace, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var u UsageTrace
	if err := sonic.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UsageColumns flattened column form of a trace, as stored by the relational
// backend. Nullable columns are nil when the message carries no trace.
type UsageColumns struct {
	Model                 *string
	InputTokens           *int64
	InputCachedTokens     int64
	OutputTokens          *int64
	OutputReasoningTokens int64
	TotalTokens           *int64
	TotalCost             decimal.NullDecimal
}

// Columns flattens the trace. A nil trace yields all-null columns.
func (u *UsageTrace) Columns() UsageColumns {
	if u == nil {
		return UsageColumns{}
	}
	model := u.Model
	input, output, total := u.InputTokens, u.OutputTokens, u.TotalTokens
	return UsageColumns{
		Model:                 &model,
		InputTokens:           &input,
		InputCachedTokens:     u.InputCachedTokens,
		OutputTokens:          &output,
		OutputReasoningTokens: u.OutputReasoningTokens,
		TotalTokens:           &total,
		TotalCost:             decimal.NewNullDecimal(u.TotalCost),
	}
}

// Trace rebuilds the trace from its columns; nil when every nullable column is null
func (c UsageColumns) Trace() *UsageTrace {
	if c.Model == nil && c.InputTokens == nil && c.OutputTokens == nil &&
		c.TotalTokens == nil && !c.TotalCost.Valid {
		return nil
	}
	u := &UsageTrace{
		InputCachedTokens:     c.InputCachedTokens,
		OutputReasoningTokens: c.OutputReasoningTokens,
	}
	if c.Model != nil {
		u.Model = *c.Model
	}
	if c.InputTokens != nil {
		u.InputTokens = *c.InputTokens
	}
	if c.OutputTokens != nil {
		u.OutputTokens = *c.OutputTokens
	}
	if c.TotalTokens != nil {
		u.TotalTokens = *c.TotalTokens
	}
	if c.TotalCost.Valid {
		u.TotalCost = c.TotalCost.Decimal
	}
	return u
}

// RoundCost rounds a cost to CostPrecision fractional digits
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostPrecision)
}
