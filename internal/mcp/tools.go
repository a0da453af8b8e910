package mcp

// In this file: MCP tool definitions and handler implementations. Each
// handler validates its arguments, charges the daily budget, and forwards to
// the Bloomberg bridge; failures come back as tool-error results.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/lhzou/blpapi-mcp/internal/blp"
)

// tools returns all MCP tools this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolBDP(),
		s.toolBDS(),
		s.toolBDH(),
		s.toolBDIB(),
		s.toolBDTick(),
		s.toolEarning(),
		s.toolDividend(),
		s.toolBEQS(),
		s.toolTurnover(),
	}
}

var stringItems = map[string]any{"type": "string"}

func (s *Server) toolBDP() mcpsrv.ServerTool {
	tool := mcplib.NewTool("bdp",
		mcplib.WithDescription(`Get Bloomberg reference data: current/point-in-time field values per security.

Returns one record per ticker with the requested scalar fields. Bulk (block)
fields are not returned here; use bds for those.`),
		mcplib.WithArray("tickers",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifiers, e.g. [\"AAPL US Equity\", \"USDJPY Curncy\"]"),
			mcplib.Items(stringItems),
		),
		mcplib.WithArray("flds",
			mcplib.Required(),
			mcplib.Description("Bloomberg field mnemonics, e.g. [\"PX_LAST\", \"SECURITY_NAME\"]"),
			mcplib.Items(stringItems),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements and field overrides, e.g. {\"EQY_FUND_CRNCY\": \"EUR\"}"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBDP}
}

func (s *Server) handleBDP(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tickers, ok := stringSliceArg(req, "tickers")
	if !ok || len(tickers) == 0 {
		return resultErr(errors.New("bdp: tickers is required")), nil
	}
	flds, ok := stringSliceArg(req, "flds")
	if !ok || len(flds) == 0 {
		return resultErr(errors.New("bdp: flds is required")), nil
	}
	elements, overrides := blp.RefDataKwargs(mapArg(req, "kwargs"))

	if err := s.consume(len(tickers) * len(flds)); err != nil {
		return resultErr(err), nil
	}

	data, err := s.client.ReferenceData(ctx, blp.RefDataRequest{
		Securities: tickers,
		Fields:     flds,
		Elements:   elements,
		Overrides:  overrides,
	})
	if err != nil {
		return resultErr(fmt.Errorf("bdp: %w", err)), nil
	}
	return s.json("bdp", data)
}

func (s *Server) toolBDS() mcpsrv.ServerTool {
	tool := mcplib.NewTool("bds",
		mcplib.WithDescription(`Get Bloomberg block (bulk) data: multi-row field values per security.

Use for fields that return tables, e.g. DVD_HIST_ALL, INDX_MEMBERS,
OPT_CHAIN. Returns one row per block entry with the security and field it
belongs to.`),
		mcplib.WithArray("tickers",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifiers"),
			mcplib.Items(stringItems),
		),
		mcplib.WithArray("flds",
			mcplib.Required(),
			mcplib.Description("Bloomberg bulk field mnemonics, e.g. [\"DVD_HIST_ALL\"]"),
			mcplib.Items(stringItems),
		),
		mcplib.WithBoolean("use_port",
			mcplib.Description("Route through PortfolioDataRequest (needed for portfolio fields such as PORTFOLIO_MEMBERS)"),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements and field overrides"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBDS}
}

func (s *Server) handleBDS(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tickers, ok := stringSliceArg(req, "tickers")
	if !ok || len(tickers) == 0 {
		return resultErr(errors.New("bds: tickers is required")), nil
	}
	flds, ok := stringSliceArg(req, "flds")
	if !ok || len(flds) == 0 {
		return resultErr(errors.New("bds: flds is required")), nil
	}
	elements, overrides := blp.RefDataKwargs(mapArg(req, "kwargs"))

	if err := s.consume(len(tickers) * len(flds)); err != nil {
		return resultErr(err), nil
	}

	rows, err := s.client.BulkData(ctx, blp.RefDataRequest{
		Securities: tickers,
		Fields:     flds,
		Portfolio:  boolArg(req, "use_port", false),
		Elements:   elements,
		Overrides:  overrides,
	})
	if err != nil {
		return resultErr(fmt.Errorf("bds: %w", err)), nil
	}
	return s.json("bds", rows)
}

func (s *Server) toolBDH() mcpsrv.ServerTool {
	tool := mcplib.NewTool("bdh",
		mcplib.WithDescription(`Get Bloomberg historical data: end-of-day field values over a date range.

Returns one dated series per ticker. Defaults to daily periodicity; set
kwargs.periodicitySelection (WEEKLY, MONTHLY, ...) to change it.`),
		mcplib.WithArray("tickers",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifiers"),
			mcplib.Items(stringItems),
		),
		mcplib.WithArray("flds",
			mcplib.Required(),
			mcplib.Description("Bloomberg field mnemonics, e.g. [\"PX_LAST\"]"),
			mcplib.Items(stringItems),
		),
		mcplib.WithString("start_date",
			mcplib.Description("Range start, YYYY-MM-DD or \"today\"; defaults to one year before end_date"),
		),
		mcplib.WithString("end_date",
			mcplib.Description("Range end, YYYY-MM-DD or \"today\" (default)"),
			mcplib.DefaultString("today"),
		),
		mcplib.WithString("adjust",
			mcplib.Description("Price adjustment: \"all\" (splits and dividends), \"dvd\", \"split\", or \"-\" for none"),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements (currency, periodicitySelection, ...) and field overrides"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBDH}
}

func (s *Server) handleBDH(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tickers, ok := stringSliceArg(req, "tickers")
	if !ok || len(tickers) == 0 {
		return resultErr(errors.New("bdh: tickers is required")), nil
	}
	flds, ok := stringSliceArg(req, "flds")
	if !ok || len(flds) == 0 {
		return resultErr(errors.New("bdh: flds is required")), nil
	}

	start, end, err := s.dateRange(req, -1, 0)
	if err != nil {
		return resultErr(fmt.Errorf("bdh: %w", err)), nil
	}

	adjust, err := blp.ParseAdjustment(stringOrDefault(req, "adjust", ""))
	if err != nil {
		return resultErr(fmt.Errorf("bdh: %w", err)), nil
	}
	elements, overrides := blp.HistoricalKwargs(mapArg(req, "kwargs"))

	if err := s.consume(len(tickers) * len(flds)); err != nil {
		return resultErr(err), nil
	}

	series, err := s.client.HistoricalData(ctx, blp.HistoricalRequest{
		Securities: tickers,
		Fields:     flds,
		Start:      start,
		End:        end,
		Adjustment: adjust,
		Elements:   elements,
		Overrides:  overrides,
	})
	if err != nil {
		return resultErr(fmt.Errorf("bdh: %w", err)), nil
	}
	return s.json("bdh", series)
}

func (s *Server) toolBDIB() mcpsrv.ServerTool {
	tool := mcplib.NewTool("bdib",
		mcplib.WithDescription(`Get Bloomberg intraday bar data for one security and one day.

Bars default to 1-minute; set kwargs.interval (minutes) to change the size.
A precise window can be set with kwargs.start_time/end_time (HH:MM).`),
		mcplib.WithString("ticker",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifier"),
		),
		mcplib.WithString("dt",
			mcplib.Required(),
			mcplib.Description("Trading day, YYYY-MM-DD or \"today\""),
		),
		mcplib.WithString("session",
			mcplib.Description("Named trading session to bound the window"),
			mcplib.Enum("allday", "day", "am", "pm", "pre", "post"),
			mcplib.DefaultString("allday"),
		),
		mcplib.WithString("typ",
			mcplib.Description("Bar event type"),
			mcplib.Enum("TRADE", "BID", "ASK", "BEST_BID", "BEST_ASK", "MID_PRICE"),
			mcplib.DefaultString("TRADE"),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements plus interval, start_time, end_time"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBDIB}
}

func (s *Server) handleBDIB(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	ticker, ok := stringArg(req, "ticker")
	if !ok || ticker == "" {
		return resultErr(errors.New("bdib: ticker is required")), nil
	}
	dt, ok := stringArg(req, "dt")
	if !ok || dt == "" {
		return resultErr(errors.New("bdib: dt is required")), nil
	}
	day, err := blp.ParseDate(dt, s.now())
	if err != nil {
		return resultErr(fmt.Errorf("bdib: %w", err)), nil
	}

	kwargs := mapArg(req, "kwargs")
	start, end, err := intradayWindow(day, stringOrDefault(req, "session", "allday"), kwargs)
	if err != nil {
		return resultErr(fmt.Errorf("bdib: %w", err)), nil
	}
	elements, err := blp.IntradayKwargs(kwargs)
	if err != nil {
		return resultErr(fmt.Errorf("bdib: %w", err)), nil
	}

	if err := s.consume(1); err != nil {
		return resultErr(err), nil
	}

	bars, err := s.client.IntradayBars(ctx, blp.IntradayBarRequest{
		Security:  ticker,
		EventType: stringOrDefault(req, "typ", "TRADE"),
		Interval:  intKwarg(kwargs, "interval", 1),
		Start:     start,
		End:       end,
		Elements:  elements,
	})
	if err != nil {
		return resultErr(fmt.Errorf("bdib: %w", err)), nil
	}
	return s.json("bdib", bars)
}

func (s *Server) toolBDTick() mcpsrv.ServerTool {
	tool := mcplib.NewTool("bdtick",
		mcplib.WithDescription(`Get Bloomberg tick data: individual trade/quote events for one security and one day.

Tick volume can be very large; prefer a narrow time_range over a full
session.`),
		mcplib.WithString("ticker",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifier"),
		),
		mcplib.WithString("dt",
			mcplib.Required(),
			mcplib.Description("Trading day, YYYY-MM-DD or \"today\""),
		),
		mcplib.WithString("session",
			mcplib.Description("Named trading session to bound the window"),
			mcplib.Enum("allday", "day", "am", "pm", "pre", "post"),
			mcplib.DefaultString("allday"),
		),
		mcplib.WithString("time_range",
			mcplib.Description("Explicit window HH:MM-HH:MM; takes precedence over session"),
		),
		mcplib.WithArray("types",
			mcplib.Description("Tick event types (default [\"TRADE\"])"),
			mcplib.Items(stringItems),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBDTick}
}

func (s *Server) handleBDTick(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	ticker, ok := stringArg(req, "ticker")
	if !ok || ticker == "" {
		return resultErr(errors.New("bdtick: ticker is required")), nil
	}
	dt, ok := stringArg(req, "dt")
	if !ok || dt == "" {
		return resultErr(errors.New("bdtick: dt is required")), nil
	}
	day, err := blp.ParseDate(dt, s.now())
	if err != nil {
		return resultErr(fmt.Errorf("bdtick: %w", err)), nil
	}

	var start, end time.Time
	if rng, ok := stringArg(req, "time_range"); ok && rng != "" {
		start, end, err = blp.ParseTimeRange(day, rng)
	} else {
		start, end, err = blp.SessionWindow(day, stringOrDefault(req, "session", "allday"))
	}
	if err != nil {
		return resultErr(fmt.Errorf("bdtick: %w", err)), nil
	}

	types, ok := stringSliceArg(req, "types")
	if !ok || len(types) == 0 {
		types = []string{"TRADE"}
	}
	elements, err := blp.IntradayKwargs(mapArg(req, "kwargs"))
	if err != nil {
		return resultErr(fmt.Errorf("bdtick: %w", err)), nil
	}

	if err := s.consume(1); err != nil {
		return resultErr(err), nil
	}

	ticks, err := s.client.IntradayTicks(ctx, blp.IntradayTickRequest{
		Security:   ticker,
		EventTypes: types,
		Start:      start,
		End:        end,
		Elements:   elements,
	})
	if err != nil {
		return resultErr(fmt.Errorf("bdtick: %w", err)), nil
	}
	return s.json("bdtick", ticks)
}

func (s *Server) toolEarning() mcpsrv.ServerTool {
	tool := mcplib.NewTool("earning",
		mcplib.WithDescription(`Get Bloomberg earnings exposure broken down by geography or product segment.

Returns the segment rows of the product/geographic breakdown field (e.g.
revenue per region). Use level to restrict to one segment depth.`),
		mcplib.WithString("ticker",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifier"),
		),
		mcplib.WithString("by",
			mcplib.Description("Breakdown dimension"),
			mcplib.Enum("Geo", "Product"),
			mcplib.DefaultString("Geo"),
		),
		mcplib.WithString("typ",
			mcplib.Description("Measure, e.g. Revenue or Assets"),
			mcplib.DefaultString("Revenue"),
		),
		mcplib.WithString("ccy",
			mcplib.Description("Currency override for the reported values"),
		),
		mcplib.WithString("level",
			mcplib.Description("Segment depth filter, e.g. \"1\" or \"2\""),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements and field overrides"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleEarning}
}

func (s *Server) handleEarning(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	ticker, ok := stringArg(req, "ticker")
	if !ok || ticker == "" {
		return resultErr(errors.New("earning: ticker is required")), nil
	}
	by := stringOrDefault(req, "by", "Geo")
	if by != "Geo" && by != "Product" {
		return resultErr(fmt.Errorf("earning: by must be Geo or Product, got %q", by)), nil
	}

	elements, overrides := blp.RefDataKwargs(mapArg(req, "kwargs"))
	// Bloomberg wants the breakdown dimension as a single letter.
	overrides["PRODUCT_GEO_OVERRIDE"] = by[:1]
	if ccy, ok := stringArg(req, "ccy"); ok && ccy != "" {
		overrides["EQY_FUND_CRNCY"] = ccy
	}

	// The segment breakdown lives in a bulk field named after the measure,
	// e.g. PG_REVENUE for "Revenue".
	field := "PG_" + strings.ToUpper(stringOrDefault(req, "typ", "Revenue"))

	if err := s.consume(1); err != nil {
		return resultErr(err), nil
	}

	rows, err := s.client.BulkData(ctx, blp.RefDataRequest{
		Securities: []string{ticker},
		Fields:     []string{field},
		Elements:   elements,
		Overrides:  overrides,
	})
	if err != nil {
		return resultErr(fmt.Errorf("earning: %w", err)), nil
	}

	if level, ok := stringArg(req, "level"); ok && level != "" {
		rows = filterByLevel(rows, level)
	}
	return s.json("earning", rows)
}

// filterByLevel keeps only segment rows at the requested depth.
func filterByLevel(rows []blp.BulkRow, level string) []blp.BulkRow {
	var out []blp.BulkRow
	for _, r := range rows {
		if v, ok := r.Values["Level"]; ok && fmt.Sprintf("%v", v) == level {
			out = append(out, r)
		}
	}
	return out
}

// dividendFields maps the tool-level typ onto the bulk field carrying that
// history.
var dividendFields = map[string]string{
	"all":   "DVD_HIST_ALL",
	"dvd":   "DVD_HIST",
	"split": "EQY_DVD_ADJUST_FACT",
}

func (s *Server) toolDividend() mcpsrv.ServerTool {
	tool := mcplib.NewTool("dividend",
		mcplib.WithDescription("Get Bloomberg dividend / split history per security, optionally bounded by declared-date range."),
		mcplib.WithArray("tickers",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifiers"),
			mcplib.Items(stringItems),
		),
		mcplib.WithString("typ",
			mcplib.Description("History type"),
			mcplib.Enum("all", "dvd", "split"),
			mcplib.DefaultString("all"),
		),
		mcplib.WithString("start_date",
			mcplib.Description("Range start, YYYY-MM-DD"),
		),
		mcplib.WithString("end_date",
			mcplib.Description("Range end, YYYY-MM-DD or \"today\""),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements and field overrides"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleDividend}
}

func (s *Server) handleDividend(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tickers, ok := stringSliceArg(req, "tickers")
	if !ok || len(tickers) == 0 {
		return resultErr(errors.New("dividend: tickers is required")), nil
	}
	typ := stringOrDefault(req, "typ", "all")
	field, ok := dividendFields[typ]
	if !ok {
		return resultErr(fmt.Errorf("dividend: typ must be all, dvd or split, got %q", typ)), nil
	}

	elements, overrides := blp.RefDataKwargs(mapArg(req, "kwargs"))
	if v, ok := stringArg(req, "start_date"); ok && v != "" {
		d, err := blp.ParseDate(v, s.now())
		if err != nil {
			return resultErr(fmt.Errorf("dividend: %w", err)), nil
		}
		overrides["DVD_START_DT"] = d.Format("20060102")
	}
	if v, ok := stringArg(req, "end_date"); ok && v != "" {
		d, err := blp.ParseDate(v, s.now())
		if err != nil {
			return resultErr(fmt.Errorf("dividend: %w", err)), nil
		}
		overrides["DVD_END_DT"] = d.Format("20060102")
	}

	if err := s.consume(len(tickers)); err != nil {
		return resultErr(err), nil
	}

	rows, err := s.client.BulkData(ctx, blp.RefDataRequest{
		Securities: tickers,
		Fields:     []string{field},
		Elements:   elements,
		Overrides:  overrides,
	})
	if err != nil {
		return resultErr(fmt.Errorf("dividend: %w", err)), nil
	}
	return s.json("dividend", rows)
}

func (s *Server) toolBEQS() mcpsrv.ServerTool {
	tool := mcplib.NewTool("beqs",
		mcplib.WithDescription("Get the results of a saved Bloomberg equity screen (EQS), optionally as of a past date."),
		mcplib.WithString("screen",
			mcplib.Required(),
			mcplib.Description("Saved screen name as it appears in EQS"),
		),
		mcplib.WithString("asof",
			mcplib.Description("Run the screen as of this date, YYYY-MM-DD"),
		),
		mcplib.WithString("typ",
			mcplib.Description("Screen type"),
			mcplib.Enum("PRIVATE", "GLOBAL"),
			mcplib.DefaultString("PRIVATE"),
		),
		mcplib.WithString("group",
			mcplib.Description("Screen folder name"),
			mcplib.DefaultString("General"),
		),
		mcplib.WithObject("kwargs",
			mcplib.Description("Optional request elements, e.g. {\"languageId\": \"ENGLISH\"}"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleBEQS}
}

func (s *Server) handleBEQS(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	screen, ok := stringArg(req, "screen")
	if !ok || screen == "" {
		return resultErr(errors.New("beqs: screen is required")), nil
	}

	var asof time.Time
	if v, ok := stringArg(req, "asof"); ok && v != "" {
		d, err := blp.ParseDate(v, s.now())
		if err != nil {
			return resultErr(fmt.Errorf("beqs: %w", err)), nil
		}
		asof = d
	}

	if err := s.consume(1); err != nil {
		return resultErr(err), nil
	}

	rows, err := s.client.EquityScreen(ctx, blp.ScreenRequest{
		Name:     screen,
		Type:     stringOrDefault(req, "typ", "PRIVATE"),
		Group:    stringOrDefault(req, "group", "General"),
		AsOf:     asof,
		Elements: mapArg(req, "kwargs"),
	})
	if err != nil {
		return resultErr(fmt.Errorf("beqs: %w", err)), nil
	}
	return s.json("beqs", rows)
}

func (s *Server) toolTurnover() mcpsrv.ServerTool {
	tool := mcplib.NewTool("turnover",
		mcplib.WithDescription(`Get the currency-adjusted traded turnover series, scaled to the given factor (default: millions).

Runs a historical query on the turnover field converted to the requested
currency and divides the values by factor.`),
		mcplib.WithArray("tickers",
			mcplib.Required(),
			mcplib.Description("Bloomberg security identifiers"),
			mcplib.Items(stringItems),
		),
		mcplib.WithString("flds",
			mcplib.Description("Turnover field mnemonic"),
			mcplib.DefaultString("Turnover"),
		),
		mcplib.WithString("start_date",
			mcplib.Description("Range start, YYYY-MM-DD; defaults to one month before end_date"),
		),
		mcplib.WithString("end_date",
			mcplib.Description("Range end, YYYY-MM-DD or \"today\" (default)"),
			mcplib.DefaultString("today"),
		),
		mcplib.WithString("ccy",
			mcplib.Description("Currency of the reported turnover"),
			mcplib.DefaultString("USD"),
		),
		mcplib.WithNumber("factor",
			mcplib.Description("Scale divisor applied to the values (default 1e6)"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTurnover}
}

func (s *Server) handleTurnover(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tickers, ok := stringSliceArg(req, "tickers")
	if !ok || len(tickers) == 0 {
		return resultErr(errors.New("turnover: tickers is required")), nil
	}
	factor := floatArg(req, "factor", 1e6)
	if factor <= 0 {
		return resultErr(fmt.Errorf("turnover: factor must be positive, got %v", factor)), nil
	}

	start, end, err := s.dateRange(req, 0, -1)
	if err != nil {
		return resultErr(fmt.Errorf("turnover: %w", err)), nil
	}

	field := strings.ToUpper(stringOrDefault(req, "flds", "Turnover"))

	if err := s.consume(len(tickers)); err != nil {
		return resultErr(err), nil
	}

	series, err := s.client.HistoricalData(ctx, blp.HistoricalRequest{
		Securities: tickers,
		Fields:     []string{field},
		Start:      start,
		End:        end,
		Currency:   stringOrDefault(req, "ccy", "USD"),
	})
	if err != nil {
		return resultErr(fmt.Errorf("turnover: %w", err)), nil
	}

	scaleSeries(series, factor)
	return s.json("turnover", series)
}

// scaleSeries divides every numeric value in the series by factor.
func scaleSeries(series []blp.HistoricalSeries, factor float64) {
	for _, s := range series {
		for _, row := range s.Rows {
			for k, v := range row.Values {
				if f, ok := v.(float64); ok {
					row.Values[k] = f / factor
				}
			}
		}
	}
}

// intradayWindow picks the query window for a trading day: an explicit
// start_time/end_time kwarg pair wins over the named session.
func intradayWindow(day time.Time, session string, kwargs map[string]any) (time.Time, time.Time, error) {
	startClock := stringKwarg(kwargs, "start_time")
	endClock := stringKwarg(kwargs, "end_time")
	switch {
	case startClock != "" && endClock != "":
		return blp.ParseTimeRange(day, startClock+"-"+endClock)
	case startClock != "" || endClock != "":
		return time.Time{}, time.Time{}, errors.New("start_time and end_time must be given together")
	default:
		return blp.SessionWindow(day, session)
	}
}

// dateRange resolves the start_date/end_date arguments. end_date defaults to
// today; a missing start_date defaults to end_date shifted by the given
// years/months.
func (s *Server) dateRange(req mcplib.CallToolRequest, years, months int) (start, end time.Time, err error) {
	end, err = blp.ParseDate(stringOrDefault(req, "end_date", "today"), s.now())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if v, ok := stringArg(req, "start_date"); ok && v != "" {
		start, err = blp.ParseDate(v, s.now())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(years, months, 0)
	}
	return start, end, nil
}

// json wraps a tool result, reporting serialisation failures as tool errors.
func (s *Server) json(tool string, v any) (*mcplib.CallToolResult, error) {
	res, err := resultJSON(v)
	if err != nil {
		return resultErr(fmt.Errorf("%s: serialise: %w", tool, err)), nil
	}
	return res, nil
}
