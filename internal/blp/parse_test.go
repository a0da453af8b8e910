package blp

import (
	"errors"
	"testing"
)

// refDataMsg mirrors a decoded ReferenceDataResponse with one good security,
// one field exception and one rejected security.
func refDataMsg() Message {
	return Message{
		Type: "ReferenceDataResponse",
		Data: map[string]any{
			"securityData": []any{
				map[string]any{
					"security": "AAPL US Equity",
					"fieldData": map[string]any{
						"PX_LAST":  float64(227.63),
						"NAME":     "APPLE INC",
						"DVD_HIST": []any{map[string]any{"Ex-Date": "2025-05-12"}},
					},
					"fieldExceptions": []any{
						map[string]any{
							"fieldId": "NOT_A_FIELD",
							"errorInfo": map[string]any{
								"category": "BAD_FLD",
								"message":  "Invalid field",
							},
						},
					},
				},
				map[string]any{
					"security": "BOGUS US Equity",
					"securityError": map[string]any{
						"category": "BAD_SEC",
						"message":  "Unknown/Invalid Security",
					},
				},
			},
		},
	}
}

func TestParseReferenceData(t *testing.T) {
	got, err := parseReferenceData([]Message{refDataMsg()})
	if err != nil {
		t.Fatalf("parseReferenceData() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseReferenceData() returned %d records, want 2", len(got))
	}

	aapl := got[0]
	if aapl.Security != "AAPL US Equity" {
		t.Errorf("Security = %q, want AAPL US Equity", aapl.Security)
	}
	if aapl.Fields["PX_LAST"] != float64(227.63) {
		t.Errorf("PX_LAST = %v, want 227.63", aapl.Fields["PX_LAST"])
	}
	if _, ok := aapl.Fields["DVD_HIST"]; ok {
		t.Error("bulk field DVD_HIST must not appear in scalar results")
	}
	if len(aapl.FieldErrors) != 1 || aapl.FieldErrors[0].Field != "NOT_A_FIELD" {
		t.Errorf("FieldErrors = %+v, want one for NOT_A_FIELD", aapl.FieldErrors)
	}

	bogus := got[1]
	if bogus.Error != "Unknown/Invalid Security" {
		t.Errorf("Error = %q, want Unknown/Invalid Security", bogus.Error)
	}
}

func TestParseBulkData(t *testing.T) {
	msg := Message{
		Type: "ReferenceDataResponse",
		Data: map[string]any{
			"securityData": []any{
				map[string]any{
					"security": "AAPL US Equity",
					"fieldData": map[string]any{
						"PX_LAST": float64(227.63),
						"DVD_HIST_ALL": []any{
							map[string]any{"Declared Date": "2025-05-01", "Dividend Amount": float64(0.26)},
							map[string]any{"Declared Date": "2025-02-01", "Dividend Amount": float64(0.25)},
						},
					},
				},
			},
		},
	}

	got, err := parseBulkData([]Message{msg})
	if err != nil {
		t.Fatalf("parseBulkData() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseBulkData() returned %d rows, want 2", len(got))
	}
	if got[0].Field != "DVD_HIST_ALL" {
		t.Errorf("Field = %q, want DVD_HIST_ALL", got[0].Field)
	}
	if got[0].Security != "AAPL US Equity" {
		t.Errorf("Security = %q, want AAPL US Equity", got[0].Security)
	}
}

func TestParseHistoricalData(t *testing.T) {
	// Historical responses carry securityData as a single sequence per
	// message, one message per security.
	msgs := []Message{
		{
			Type: "HistoricalDataResponse",
			Data: map[string]any{
				"securityData": map[string]any{
					"security": "AAPL US Equity",
					"fieldData": []any{
						map[string]any{"date": "2025-01-02", "PX_LAST": float64(243.85)},
						map[string]any{"date": "2025-01-03", "PX_LAST": float64(243.36)},
					},
				},
			},
		},
		{
			Type: "HistoricalDataResponse",
			Data: map[string]any{
				"securityData": map[string]any{
					"security": "MSFT US Equity",
					"fieldData": []any{
						map[string]any{"date": "2025-01-02", "PX_LAST": float64(418.58)},
					},
				},
			},
		},
	}

	got, err := parseHistoricalData(msgs)
	if err != nil {
		t.Fatalf("parseHistoricalData() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseHistoricalData() returned %d series, want 2", len(got))
	}
	if got[0].Security != "AAPL US Equity" || len(got[0].Rows) != 2 {
		t.Errorf("series[0] = %s with %d rows, want AAPL US Equity with 2", got[0].Security, len(got[0].Rows))
	}
	if got[0].Rows[0].Date != "2025-01-02" {
		t.Errorf("Rows[0].Date = %q, want 2025-01-02", got[0].Rows[0].Date)
	}
	if got[0].Rows[0].Values["PX_LAST"] != float64(243.85) {
		t.Errorf("Rows[0].Values[PX_LAST] = %v, want 243.85", got[0].Rows[0].Values["PX_LAST"])
	}
}

func TestParseIntradayBars(t *testing.T) {
	msg := Message{
		Type: "IntradayBarResponse",
		Data: map[string]any{
			"barData": map[string]any{
				"barTickData": []any{
					map[string]any{
						"time": "2025-06-02T13:30:00", "open": float64(201.1),
						"high": float64(201.9), "low": float64(200.8), "close": float64(201.5),
						"volume": int64(120000), "numEvents": int64(450), "value": float64(2.41e7),
					},
				},
			},
		},
	}

	got, err := parseIntradayBars([]Message{msg})
	if err != nil {
		t.Fatalf("parseIntradayBars() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseIntradayBars() returned %d bars, want 1", len(got))
	}
	bar := got[0]
	if bar.Time != "2025-06-02T13:30:00" || bar.Close != 201.5 || bar.Volume != 120000 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestParseIntradayTicks(t *testing.T) {
	msg := Message{
		Type: "IntradayTickResponse",
		Data: map[string]any{
			"tickData": map[string]any{
				"tickData": []any{
					map[string]any{
						"time": "2025-06-02T13:30:01", "type": "TRADE",
						"value": float64(201.12), "size": int64(200), "conditionCodes": "R",
					},
					map[string]any{
						"time": "2025-06-02T13:30:02", "type": "TRADE",
						"value": float64(201.15), "size": int64(100),
					},
				},
			},
		},
	}

	got, err := parseIntradayTicks([]Message{msg})
	if err != nil {
		t.Fatalf("parseIntradayTicks() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseIntradayTicks() returned %d ticks, want 2", len(got))
	}
	if got[0].ConditionCodes != "R" {
		t.Errorf("ConditionCodes = %q, want R", got[0].ConditionCodes)
	}
	if got[1].Value != 201.15 || got[1].Size != 100 {
		t.Errorf("tick[1] = %+v", got[1])
	}
}

func TestParseEquityScreen(t *testing.T) {
	msg := Message{
		Type: "BeqsResponse",
		Data: map[string]any{
			"data": map[string]any{
				"securityData": []any{
					map[string]any{
						"security": "AAPL US Equity",
						"fieldData": map[string]any{
							"Ticker":     "AAPL",
							"Market Cap": float64(3.4e12),
						},
					},
				},
			},
		},
	}

	got, err := parseEquityScreen([]Message{msg})
	if err != nil {
		t.Fatalf("parseEquityScreen() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseEquityScreen() returned %d rows, want 1", len(got))
	}
	if got[0]["security"] != "AAPL US Equity" || got[0]["Ticker"] != "AAPL" {
		t.Errorf("row = %+v", got[0])
	}
}

func TestResponseErrorSurfaces(t *testing.T) {
	msg := Message{
		Type: "ReferenceDataResponse",
		Data: map[string]any{
			"responseError": map[string]any{
				"category": "LIMIT",
				"message":  "DAILY LIMIT REACHED",
			},
		},
	}

	_, err := parseReferenceData([]Message{msg})
	if err == nil {
		t.Fatal("parseReferenceData() should surface responseError")
	}
	var rerr *ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("error type = %T, want *ResponseError", err)
	}
	if rerr.Category != "LIMIT" {
		t.Errorf("Category = %q, want LIMIT", rerr.Category)
	}
}

func TestParseEmptyMessages(t *testing.T) {
	if got, err := parseReferenceData(nil); err != nil || len(got) != 0 {
		t.Errorf("parseReferenceData(nil) = (%v, %v), want empty", got, err)
	}
	if got, err := parseIntradayBars([]Message{{Type: "IntradayBarResponse", Data: map[string]any{}}}); err != nil || len(got) != 0 {
		t.Errorf("parseIntradayBars(empty) = (%v, %v), want empty", got, err)
	}
}
