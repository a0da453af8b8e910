package blp

// Message is one decoded Bloomberg response message: the message type and
// its element tree. Sequences decode to map[string]any, arrays to []any,
// scalars to string/bool/int64/float64; dates and datetimes decode to their
// ISO string form.
type Message struct {
	Type string
	Data map[string]any
}

// SecurityData holds the scalar field values returned for one security.
type SecurityData struct {
	Security    string         `json:"security"`
	Fields      map[string]any `json:"fields"`
	FieldErrors []FieldError   `json:"field_errors,omitempty"`
	// Error is set when Bloomberg rejected the security itself
	// (e.g. unknown ticker).
	Error string `json:"error,omitempty"`
}

// FieldError describes a per-field exception within an otherwise successful
// response.
type FieldError struct {
	Field    string `json:"field"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
}

// BulkRow is a single row of a bulk (block) field for one security, e.g. one
// dividend record out of DVD_HIST_ALL.
type BulkRow struct {
	Security string         `json:"security"`
	Field    string         `json:"field"`
	Values   map[string]any `json:"values"`
}

// HistoricalSeries is the dated field values returned for one security by a
// HistoricalDataRequest.
type HistoricalSeries struct {
	Security string          `json:"security"`
	Rows     []HistoricalRow `json:"rows"`
	// Error is set when Bloomberg rejected the security itself.
	Error string `json:"error,omitempty"`
}

// HistoricalRow is one date's field values within a historical series.
type HistoricalRow struct {
	Date   string         `json:"date"`
	Values map[string]any `json:"values"`
}

// Bar is one intraday bar.
type Bar struct {
	Time      string  `json:"time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	NumEvents int64   `json:"num_events"`
	Value     float64 `json:"value"`
}

// Tick is one intraday tick event.
type Tick struct {
	Time           string  `json:"time"`
	Type           string  `json:"type"`
	Value          float64 `json:"value"`
	Size           int64   `json:"size"`
	ConditionCodes string  `json:"condition_codes,omitempty"`
}

// ScreenRow is one result row of an equity screen; keys are the screen's
// display fields.
type ScreenRow map[string]any
