package blp

// In this file: decoding of Bloomberg response message trees into the typed
// results returned by Client. The trees arrive as the neutral map/slice form
// produced by the raw connection (see Message).

// parseReferenceData extracts scalar field values from ReferenceDataResponse
// messages. Bulk (array) field values are skipped here; bds handles those.
func parseReferenceData(msgs []Message) ([]SecurityData, error) {
	var out []SecurityData
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		for _, sd := range securityDataList(msg.Data) {
			rec := SecurityData{
				Security: str(sd["security"]),
				Fields:   make(map[string]any),
			}
			if se, ok := sd["securityError"].(map[string]any); ok {
				rec.Error = str(se["message"])
			}
			rec.FieldErrors = fieldExceptions(sd)
			if fd, ok := sd["fieldData"].(map[string]any); ok {
				for field, v := range fd {
					if _, isBulk := v.([]any); isBulk {
						continue
					}
					rec.Fields[field] = v
				}
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// parseBulkData extracts bulk (block) field rows from ReferenceDataResponse
// messages. Scalar field values are skipped; bdp handles those.
func parseBulkData(msgs []Message) ([]BulkRow, error) {
	var out []BulkRow
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		for _, sd := range securityDataList(msg.Data) {
			security := str(sd["security"])
			fd, ok := sd["fieldData"].(map[string]any)
			if !ok {
				continue
			}
			for field, v := range fd {
				rows, isBulk := v.([]any)
				if !isBulk {
					continue
				}
				for _, row := range rows {
					values, ok := row.(map[string]any)
					if !ok {
						continue
					}
					out = append(out, BulkRow{
						Security: security,
						Field:    field,
						Values:   values,
					})
				}
			}
		}
	}
	return out, nil
}

// parseHistoricalData extracts dated rows from HistoricalDataResponse
// messages. Each message carries one security's series.
func parseHistoricalData(msgs []Message) ([]HistoricalSeries, error) {
	var out []HistoricalSeries
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		for _, sd := range securityDataList(msg.Data) {
			series := HistoricalSeries{Security: str(sd["security"])}
			if se, ok := sd["securityError"].(map[string]any); ok {
				series.Error = str(se["message"])
			}
			rows, _ := sd["fieldData"].([]any)
			for _, r := range rows {
				rm, ok := r.(map[string]any)
				if !ok {
					continue
				}
				row := HistoricalRow{Values: make(map[string]any)}
				for k, v := range rm {
					if k == "date" {
						row.Date = str(v)
						continue
					}
					row.Values[k] = v
				}
				series.Rows = append(series.Rows, row)
			}
			out = append(out, series)
		}
	}
	return out, nil
}

// parseIntradayBars extracts bars from IntradayBarResponse messages.
func parseIntradayBars(msgs []Message) ([]Bar, error) {
	var out []Bar
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		barData, ok := msg.Data["barData"].(map[string]any)
		if !ok {
			continue
		}
		ticks, _ := barData["barTickData"].([]any)
		for _, t := range ticks {
			tm, ok := t.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, Bar{
				Time:      str(tm["time"]),
				Open:      num(tm["open"]),
				High:      num(tm["high"]),
				Low:       num(tm["low"]),
				Close:     num(tm["close"]),
				Volume:    integer(tm["volume"]),
				NumEvents: integer(tm["numEvents"]),
				Value:     num(tm["value"]),
			})
		}
	}
	return out, nil
}

// parseIntradayTicks extracts ticks from IntradayTickResponse messages.
func parseIntradayTicks(msgs []Message) ([]Tick, error) {
	var out []Tick
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		tickData, ok := msg.Data["tickData"].(map[string]any)
		if !ok {
			continue
		}
		ticks, _ := tickData["tickData"].([]any)
		for _, t := range ticks {
			tm, ok := t.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, Tick{
				Time:           str(tm["time"]),
				Type:           str(tm["type"]),
				Value:          num(tm["value"]),
				Size:           integer(tm["size"]),
				ConditionCodes: str(tm["conditionCodes"]),
			})
		}
	}
	return out, nil
}

// parseEquityScreen extracts result rows from BeqsResponse messages. The
// grid comes back in the reference-data shape: data/securityData with a
// fieldData map per row.
func parseEquityScreen(msgs []Message) ([]ScreenRow, error) {
	var out []ScreenRow
	for _, msg := range msgs {
		if err := responseError(msg); err != nil {
			return nil, err
		}
		data, ok := msg.Data["data"].(map[string]any)
		if !ok {
			continue
		}
		for _, sd := range asList(data["securityData"]) {
			row := ScreenRow{}
			if sec := str(sd["security"]); sec != "" {
				row["security"] = sec
			}
			if fd, ok := sd["fieldData"].(map[string]any); ok {
				for k, v := range fd {
					row[k] = v
				}
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// responseError converts a request-level responseError element into a Go
// error.
func responseError(msg Message) error {
	re, ok := msg.Data["responseError"].(map[string]any)
	if !ok {
		return nil
	}
	return &ResponseError{
		Category: str(re["category"]),
		Message:  str(re["message"]),
	}
}

// securityDataList normalises the securityData element, which is an array in
// reference-data responses and a single sequence in historical responses.
func securityDataList(data map[string]any) []map[string]any {
	return asList(data["securityData"])
}

// asList normalises an element that may decode as a single map or a slice of
// maps.
func asList(v any) []map[string]any {
	switch x := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{x}
	default:
		return nil
	}
}

// fieldExceptions extracts per-field errors from a securityData element.
func fieldExceptions(sd map[string]any) []FieldError {
	var out []FieldError
	for _, fe := range asList(sd["fieldExceptions"]) {
		e := FieldError{Field: str(fe["fieldId"])}
		if info, ok := fe["errorInfo"].(map[string]any); ok {
			e.Category = str(info["category"])
			e.Message = str(info["message"])
		}
		out = append(out, e)
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}

func integer(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}
