package blp

import (
	"fmt"
	"time"
)

// body is the neutral request representation handed to the raw connection:
// array elements, scalar elements, and field overrides. The raw layer maps it
// onto the SDK's element tree without knowing which operation it serves.
type body struct {
	arrays    map[string][]string
	values    map[string]any
	overrides map[string]string
}

func newBody() body {
	return body{
		arrays:    make(map[string][]string),
		values:    make(map[string]any),
		overrides: make(map[string]string),
	}
}

// setElements copies extra request elements into the body.
func (b body) setElements(extra map[string]any) {
	for k, v := range extra {
		b.values[k] = v
	}
}

// setOverrides copies field overrides into the body.
func (b body) setOverrides(ovr map[string]string) {
	for k, v := range ovr {
		b.overrides[k] = v
	}
}

// RefDataRequest describes a ReferenceDataRequest: scalar fields for bdp,
// bulk fields for bds.
type RefDataRequest struct {
	Securities []string
	Fields     []string
	// Portfolio routes the query through PortfolioDataRequest, needed for
	// portfolio bulk fields such as PORTFOLIO_MEMBERS.
	Portfolio bool
	// Elements holds extra request elements (e.g. returnFormattedValue).
	Elements map[string]any
	// Overrides holds field overrides (fieldId → value).
	Overrides map[string]string
}

// operation returns the refdata operation serving this request.
func (r RefDataRequest) operation() string {
	if r.Portfolio {
		return "PortfolioDataRequest"
	}
	return "ReferenceDataRequest"
}

// Validate implements the pre-flight check run before anything reaches
// Bloomberg.
func (r RefDataRequest) Validate() error {
	if len(r.Securities) == 0 {
		return validationErrorf("at least one security is required")
	}
	if len(r.Fields) == 0 {
		return validationErrorf("at least one field is required")
	}
	for _, s := range r.Securities {
		if s == "" {
			return validationErrorf("empty security identifier")
		}
	}
	for _, f := range r.Fields {
		if f == "" {
			return validationErrorf("empty field mnemonic")
		}
	}
	return nil
}

func (r RefDataRequest) body() body {
	b := newBody()
	b.arrays["securities"] = r.Securities
	b.arrays["fields"] = r.Fields
	b.setElements(r.Elements)
	b.setOverrides(r.Overrides)
	return b
}

// Adjustment selects the price adjustments applied by a
// HistoricalDataRequest.
type Adjustment struct {
	Normal   bool
	Abnormal bool
	Split    bool
}

// ParseAdjustment maps the tool-level adjust parameter onto request flags:
// "all" enables everything, "dvd" the cash distributions, "split" the
// capital changes, "" or "-" nothing.
func ParseAdjustment(s string) (Adjustment, error) {
	switch s {
	case "", "-":
		return Adjustment{}, nil
	case "all":
		return Adjustment{Normal: true, Abnormal: true, Split: true}, nil
	case "dvd":
		return Adjustment{Normal: true, Abnormal: true}, nil
	case "split":
		return Adjustment{Split: true}, nil
	default:
		return Adjustment{}, validationErrorf("unknown adjust value %q (use all, dvd, split or -)", s)
	}
}

// HistoricalRequest describes a HistoricalDataRequest.
type HistoricalRequest struct {
	Securities []string
	Fields     []string
	// Start and End bound the series, inclusive.
	Start time.Time
	End   time.Time
	// Periodicity is DAILY, WEEKLY, MONTHLY, QUARTERLY, SEMI_ANNUALLY or
	// YEARLY; empty means DAILY.
	Periodicity string
	// Currency converts prices when set.
	Currency   string
	Adjustment Adjustment
	Elements   map[string]any
	Overrides  map[string]string
}

var periodicities = map[string]bool{
	"DAILY": true, "WEEKLY": true, "MONTHLY": true,
	"QUARTERLY": true, "SEMI_ANNUALLY": true, "YEARLY": true,
}

// Validate implements the pre-flight check.
func (r HistoricalRequest) Validate() error {
	if len(r.Securities) == 0 {
		return validationErrorf("at least one security is required")
	}
	if len(r.Fields) == 0 {
		return validationErrorf("at least one field is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return validationErrorf("start and end dates are required")
	}
	if r.End.Before(r.Start) {
		return validationErrorf("end date %s is before start date %s",
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	if r.Periodicity != "" && !periodicities[r.Periodicity] {
		return validationErrorf("unknown periodicity %q", r.Periodicity)
	}
	return nil
}

func (r HistoricalRequest) body() body {
	b := newBody()
	b.arrays["securities"] = r.Securities
	b.arrays["fields"] = r.Fields
	b.values["startDate"] = bbgDate(r.Start)
	b.values["endDate"] = bbgDate(r.End)
	per := r.Periodicity
	if per == "" {
		per = "DAILY"
	}
	b.values["periodicitySelection"] = per
	if r.Currency != "" {
		b.values["currency"] = r.Currency
	}
	if r.Adjustment.Normal {
		b.values["adjustmentNormal"] = true
	}
	if r.Adjustment.Abnormal {
		b.values["adjustmentAbnormal"] = true
	}
	if r.Adjustment.Split {
		b.values["adjustmentSplit"] = true
	}
	b.setElements(r.Elements)
	b.setOverrides(r.Overrides)
	return b
}

// eventTypes are the tick/bar event types accepted by the intraday requests.
var eventTypes = map[string]bool{
	"TRADE": true, "BID": true, "ASK": true,
	"BID_BEST": true, "ASK_BEST": true, "BEST_BID": true, "BEST_ASK": true,
	"MID_PRICE": true, "AT_TRADE": true, "SETTLE": true,
}

// IntradayBarRequest describes an IntradayBarRequest for one security.
type IntradayBarRequest struct {
	Security  string
	EventType string
	// Interval is the bar size in minutes (1–1440).
	Interval int
	Start    time.Time
	End      time.Time
	Elements map[string]any
}

// Validate implements the pre-flight check.
func (r IntradayBarRequest) Validate() error {
	if r.Security == "" {
		return validationErrorf("security is required")
	}
	if !eventTypes[r.EventType] {
		return validationErrorf("unknown event type %q", r.EventType)
	}
	if r.Interval < 1 || r.Interval > 1440 {
		return validationErrorf("interval must be 1-1440 minutes, got %d", r.Interval)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return validationErrorf("start and end times are required")
	}
	if !r.End.After(r.Start) {
		return validationErrorf("end time must be after start time")
	}
	return nil
}

func (r IntradayBarRequest) body() body {
	b := newBody()
	b.values["security"] = r.Security
	b.values["eventType"] = r.EventType
	b.values["interval"] = r.Interval
	b.values["startDateTime"] = bbgDatetime(r.Start)
	b.values["endDateTime"] = bbgDatetime(r.End)
	b.setElements(r.Elements)
	return b
}

// IntradayTickRequest describes an IntradayTickRequest for one security.
type IntradayTickRequest struct {
	Security   string
	EventTypes []string
	Start      time.Time
	End        time.Time
	Elements   map[string]any
}

// Validate implements the pre-flight check.
func (r IntradayTickRequest) Validate() error {
	if r.Security == "" {
		return validationErrorf("security is required")
	}
	if len(r.EventTypes) == 0 {
		return validationErrorf("at least one event type is required")
	}
	for _, et := range r.EventTypes {
		if !eventTypes[et] {
			return validationErrorf("unknown event type %q", et)
		}
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return validationErrorf("start and end times are required")
	}
	if !r.End.After(r.Start) {
		return validationErrorf("end time must be after start time")
	}
	return nil
}

func (r IntradayTickRequest) body() body {
	b := newBody()
	b.values["security"] = r.Security
	b.arrays["eventTypes"] = r.EventTypes
	b.values["startDateTime"] = bbgDatetime(r.Start)
	b.values["endDateTime"] = bbgDatetime(r.End)
	b.values["includeConditionCodes"] = true
	b.setElements(r.Elements)
	return b
}

// screenTypes are the EQS screen types accepted by BeqsRequest.
var screenTypes = map[string]bool{"PRIVATE": true, "GLOBAL": true}

// ScreenRequest describes a BeqsRequest against a saved equity screen.
type ScreenRequest struct {
	// Name is the saved screen name in EQS.
	Name string
	// Type is PRIVATE (user screen) or GLOBAL (Bloomberg screen).
	Type string
	// Group is the screen folder; Bloomberg defaults to "General".
	Group string
	// AsOf runs the screen as of a past date when non-zero.
	AsOf time.Time
	// Elements holds extra request elements (e.g. languageId).
	Elements map[string]any
}

// Validate implements the pre-flight check.
func (r ScreenRequest) Validate() error {
	if r.Name == "" {
		return validationErrorf("screen name is required")
	}
	if r.Type != "" && !screenTypes[r.Type] {
		return validationErrorf("unknown screen type %q (use PRIVATE or GLOBAL)", r.Type)
	}
	return nil
}

func (r ScreenRequest) body() body {
	b := newBody()
	b.values["screenName"] = r.Name
	typ := r.Type
	if typ == "" {
		typ = "PRIVATE"
	}
	b.values["screenType"] = typ
	if r.Group != "" {
		b.values["Group"] = r.Group
	}
	if !r.AsOf.IsZero() {
		// The screen date travels as an override, per the exrsvc schema.
		b.overrides["PiTDate"] = bbgDate(r.AsOf)
	}
	b.setElements(r.Elements)
	return b
}

// bbgDate formats a date the way Bloomberg request elements expect it.
func bbgDate(t time.Time) string {
	return t.Format("20060102")
}

// bbgDatetime formats a datetime for the intraday request elements.
func bbgDatetime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// stringify renders an override value in element form.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers arrive as float64; render integers without a point.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", v)
	}
}
