package blp

import (
	"errors"
	"testing"
	"time"
)

func TestRefDataRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     RefDataRequest
		wantErr bool
	}{
		{"valid", RefDataRequest{Securities: []string{"AAPL US Equity"}, Fields: []string{"PX_LAST"}}, false},
		{"no securities", RefDataRequest{Fields: []string{"PX_LAST"}}, true},
		{"no fields", RefDataRequest{Securities: []string{"AAPL US Equity"}}, true},
		{"empty security", RefDataRequest{Securities: []string{""}, Fields: []string{"PX_LAST"}}, true},
		{"empty field", RefDataRequest{Securities: []string{"AAPL US Equity"}, Fields: []string{""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestRefDataRequestBody(t *testing.T) {
	req := RefDataRequest{
		Securities: []string{"AAPL US Equity", "MSFT US Equity"},
		Fields:     []string{"PX_LAST"},
		Elements:   map[string]any{"returnFormattedValue": true},
		Overrides:  map[string]string{"EQY_FUND_CRNCY": "EUR"},
	}

	b := req.body()
	if got := len(b.arrays["securities"]); got != 2 {
		t.Errorf("securities length = %d, want 2", got)
	}
	if got := b.values["returnFormattedValue"]; got != true {
		t.Errorf("returnFormattedValue = %v, want true", got)
	}
	if got := b.overrides["EQY_FUND_CRNCY"]; got != "EUR" {
		t.Errorf("override EQY_FUND_CRNCY = %q, want EUR", got)
	}
}

func TestParseAdjustment(t *testing.T) {
	tests := []struct {
		in      string
		want    Adjustment
		wantErr bool
	}{
		{"", Adjustment{}, false},
		{"-", Adjustment{}, false},
		{"all", Adjustment{Normal: true, Abnormal: true, Split: true}, false},
		{"dvd", Adjustment{Normal: true, Abnormal: true}, false},
		{"split", Adjustment{Split: true}, false},
		{"bogus", Adjustment{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAdjustment(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAdjustment(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAdjustment(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHistoricalRequestValidate(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	valid := HistoricalRequest{
		Securities: []string{"AAPL US Equity"},
		Fields:     []string{"PX_LAST"},
		Start:      day,
		End:        day.AddDate(0, 1, 0),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v for valid request", err)
	}

	reversed := valid
	reversed.Start, reversed.End = reversed.End, reversed.Start
	if err := reversed.Validate(); err == nil {
		t.Error("Validate() should reject end before start")
	}

	badPer := valid
	badPer.Periodicity = "HOURLY"
	if err := badPer.Validate(); err == nil {
		t.Error("Validate() should reject unknown periodicity")
	}
}

func TestHistoricalRequestBody(t *testing.T) {
	req := HistoricalRequest{
		Securities:  []string{"AAPL US Equity"},
		Fields:      []string{"PX_LAST", "PX_VOLUME"},
		Start:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "EUR",
		Adjustment:  Adjustment{Normal: true, Abnormal: true, Split: true},
		Periodicity: "WEEKLY",
	}

	b := req.body()
	if got := b.values["startDate"]; got != "20241231" {
		t.Errorf("startDate = %v, want 20241231", got)
	}
	if got := b.values["endDate"]; got != "20250131" {
		t.Errorf("endDate = %v, want 20250131", got)
	}
	if got := b.values["periodicitySelection"]; got != "WEEKLY" {
		t.Errorf("periodicitySelection = %v, want WEEKLY", got)
	}
	if got := b.values["currency"]; got != "EUR" {
		t.Errorf("currency = %v, want EUR", got)
	}
	for _, k := range []string{"adjustmentNormal", "adjustmentAbnormal", "adjustmentSplit"} {
		if got := b.values[k]; got != true {
			t.Errorf("%s = %v, want true", k, got)
		}
	}
}

func TestHistoricalRequestBodyDefaultPeriodicity(t *testing.T) {
	req := HistoricalRequest{
		Securities: []string{"AAPL US Equity"},
		Fields:     []string{"PX_LAST"},
		Start:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if got := req.body().values["periodicitySelection"]; got != "DAILY" {
		t.Errorf("periodicitySelection = %v, want DAILY", got)
	}
}

func TestIntradayBarRequestValidate(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	valid := IntradayBarRequest{
		Security:  "AAPL US Equity",
		EventType: "TRADE",
		Interval:  5,
		Start:     day.Add(9 * time.Hour),
		End:       day.Add(16 * time.Hour),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v for valid request", err)
	}

	tests := []struct {
		name   string
		mutate func(*IntradayBarRequest)
	}{
		{"no security", func(r *IntradayBarRequest) { r.Security = "" }},
		{"bad event type", func(r *IntradayBarRequest) { r.EventType = "QUOTE" }},
		{"interval too small", func(r *IntradayBarRequest) { r.Interval = 0 }},
		{"interval too large", func(r *IntradayBarRequest) { r.Interval = 2000 }},
		{"end before start", func(r *IntradayBarRequest) { r.End = r.Start.Add(-time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			if err := req.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}

func TestIntradayTickRequestBody(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	req := IntradayTickRequest{
		Security:   "AAPL US Equity",
		EventTypes: []string{"TRADE", "BID"},
		Start:      day.Add(14 * time.Hour),
		End:        day.Add(15 * time.Hour),
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	b := req.body()
	if got := len(b.arrays["eventTypes"]); got != 2 {
		t.Errorf("eventTypes length = %d, want 2", got)
	}
	if got := b.values["startDateTime"]; got != "2025-06-02T14:00:00" {
		t.Errorf("startDateTime = %v, want 2025-06-02T14:00:00", got)
	}
	if got := b.values["includeConditionCodes"]; got != true {
		t.Errorf("includeConditionCodes = %v, want true", got)
	}
}

func TestScreenRequestBody(t *testing.T) {
	req := ScreenRequest{
		Name:  "Vol Surge",
		Group: "General",
		AsOf:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	b := req.body()
	if got := b.values["screenName"]; got != "Vol Surge" {
		t.Errorf("screenName = %v, want Vol Surge", got)
	}
	if got := b.values["screenType"]; got != "PRIVATE" {
		t.Errorf("default screenType = %v, want PRIVATE", got)
	}
	if got := b.overrides["PiTDate"]; got != "20250314" {
		t.Errorf("PiTDate override = %v, want 20250314", got)
	}
}

func TestScreenRequestValidate(t *testing.T) {
	if err := (ScreenRequest{}).Validate(); err == nil {
		t.Error("Validate() should reject missing screen name")
	}
	if err := (ScreenRequest{Name: "x", Type: "LOCAL"}).Validate(); err == nil {
		t.Error("Validate() should reject unknown screen type")
	}
}

func TestSplitKwargs(t *testing.T) {
	elements, overrides := HistoricalKwargs(map[string]any{
		"currency":      "JPY",
		"DVD_START_DT":  "20240101",
		"maxDataPoints": 100,
	})

	if got := elements["currency"]; got != "JPY" {
		t.Errorf("elements[currency] = %v, want JPY", got)
	}
	if got := elements["maxDataPoints"]; got != 100 {
		t.Errorf("elements[maxDataPoints] = %v, want 100", got)
	}
	if got := overrides["DVD_START_DT"]; got != "20240101" {
		t.Errorf("overrides[DVD_START_DT] = %q, want 20240101", got)
	}
	if _, ok := overrides["currency"]; ok {
		t.Error("currency should not appear in overrides")
	}
}

func TestSplitKwargsStringifiesOverrides(t *testing.T) {
	_, overrides := RefDataKwargs(map[string]any{
		"VWAP_START_TIME": float64(930),
		"USE_DPDF":        true,
	})
	if got := overrides["VWAP_START_TIME"]; got != "930" {
		t.Errorf("overrides[VWAP_START_TIME] = %q, want 930", got)
	}
	if got := overrides["USE_DPDF"]; got != "true" {
		t.Errorf("overrides[USE_DPDF] = %q, want true", got)
	}
}

func TestIntradayKwargsRejectsUnknown(t *testing.T) {
	if _, err := IntradayKwargs(map[string]any{"NOT_AN_ELEMENT": 1}); err == nil {
		t.Error("IntradayKwargs() should reject unknown keys")
	}
	elements, err := IntradayKwargs(map[string]any{"gapFillInitialBar": true, "interval": 10})
	if err != nil {
		t.Fatalf("IntradayKwargs() error = %v", err)
	}
	if got := elements["gapFillInitialBar"]; got != true {
		t.Errorf("elements[gapFillInitialBar] = %v, want true", got)
	}
	if _, ok := elements["interval"]; ok {
		t.Error("interval is handled by the caller and must not pass through")
	}
}
