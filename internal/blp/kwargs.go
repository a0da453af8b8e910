package blp

// Request element names settable through tool kwargs, per operation. Any
// kwarg that is not a known request element is treated as a field override,
// which is how callers pass e.g. EQY_FUND_CRNCY or DVD_START_DT.

var refDataElements = map[string]bool{
	"returnEids":           true,
	"returnFormattedValue": true,
	"useUTCTime":           true,
	"forcedDelay":          true,
	"bestFieldsOnly":       true,
	"returnNullValue":      true,
}

var historicalElements = map[string]bool{
	"periodicityAdjustment":   true,
	"periodicitySelection":    true,
	"currency":                true,
	"overrideOption":          true,
	"pricingOption":           true,
	"nonTradingDayFillOption": true,
	"nonTradingDayFillMethod": true,
	"maxDataPoints":           true,
	"returnEids":              true,
	"returnRelativeDate":      true,
	"adjustmentNormal":        true,
	"adjustmentAbnormal":      true,
	"adjustmentSplit":         true,
	"adjustmentFollowDPDF":    true,
	"calendarCodeOverride":    true,
}

var intradayElements = map[string]bool{
	"gapFillInitialBar":         true,
	"adjustmentNormal":          true,
	"adjustmentAbnormal":        true,
	"adjustmentSplit":           true,
	"adjustmentFollowDPDF":      true,
	"includeConditionCodes":     true,
	"includeNonPlottableEvents": true,
	"includeExchangeCodes":      true,
	"returnEids":                true,
	"includeBrokerCodes":        true,
	"includeRpsCodes":           true,
	"includeBicMicCodes":        true,
	"maxDataPoints":             true,
}

// Kwarg keys consumed by the tool layer itself; they never travel to
// Bloomberg.
var localKwargs = map[string]bool{
	"interval":   true,
	"start_time": true,
	"end_time":   true,
}

// SplitKwargs routes tool kwargs into request elements and field overrides
// for the given set of known element names.
func SplitKwargs(known map[string]bool, kwargs map[string]any) (elements map[string]any, overrides map[string]string) {
	elements = make(map[string]any)
	overrides = make(map[string]string)
	for k, v := range kwargs {
		switch {
		case localKwargs[k]:
			// handled by the caller
		case known[k]:
			elements[k] = v
		default:
			overrides[k] = stringify(v)
		}
	}
	return elements, overrides
}

// RefDataKwargs routes kwargs for ReferenceDataRequest.
func RefDataKwargs(kwargs map[string]any) (map[string]any, map[string]string) {
	return SplitKwargs(refDataElements, kwargs)
}

// HistoricalKwargs routes kwargs for HistoricalDataRequest.
func HistoricalKwargs(kwargs map[string]any) (map[string]any, map[string]string) {
	return SplitKwargs(historicalElements, kwargs)
}

// IntradayKwargs routes kwargs for the intraday requests, which accept no
// overrides; unknown keys are reported instead of silently dropped.
func IntradayKwargs(kwargs map[string]any) (map[string]any, error) {
	elements, overrides := SplitKwargs(intradayElements, kwargs)
	for k := range overrides {
		return nil, validationErrorf("unknown kwarg %q for intraday request", k)
	}
	return elements, nil
}
