// Package blp bridges MCP tool calls to the local Bloomberg Terminal.
//
// The package owns request construction and response decoding; the wire
// protocol itself belongs to Bloomberg's blpapi SDK, bound in raw_blpapi.go
// behind the "blpapi" build tag. Everything above that boundary is plain Go
// and testable without a Terminal.
package blp

import (
	"context"
	"time"
)

// Bloomberg service URIs.
const (
	refDataService = "//blp/refdata"
	exrService     = "//blp/exrsvc"
)

// Client is the query surface the MCP tools call into. All methods block
// until Bloomberg returns the final response event or ctx is done.
type Client interface {
	// ReferenceData runs a ReferenceDataRequest and returns scalar field
	// values per security.
	ReferenceData(ctx context.Context, req RefDataRequest) ([]SecurityData, error)

	// BulkData runs a ReferenceDataRequest for bulk (block) fields and
	// returns the block rows per security and field.
	BulkData(ctx context.Context, req RefDataRequest) ([]BulkRow, error)

	// HistoricalData runs a HistoricalDataRequest.
	HistoricalData(ctx context.Context, req HistoricalRequest) ([]HistoricalSeries, error)

	// IntradayBars runs an IntradayBarRequest for a single security.
	IntradayBars(ctx context.Context, req IntradayBarRequest) ([]Bar, error)

	// IntradayTicks runs an IntradayTickRequest for a single security.
	IntradayTicks(ctx context.Context, req IntradayTickRequest) ([]Tick, error)

	// EquityScreen runs a BeqsRequest against the saved EQS screen.
	EquityScreen(ctx context.Context, req ScreenRequest) ([]ScreenRow, error)

	// Close shuts the underlying Bloomberg session down.
	Close() error
}

// Options configures a Terminal session.
type Options struct {
	// Host and Port locate the local BBComm endpoint (default localhost:8194).
	Host string
	Port int
	// Timeout bounds the wait for each response event.
	Timeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Host == "" {
		o.Host = "localhost"
	}
	if o.Port == 0 {
		o.Port = 8194
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
}

// Dial opens a session against the local Bloomberg Terminal. It fails if the
// Terminal is unreachable or the binary was built without blpapi SDK support.
func Dial(opts Options) (*Session, error) {
	opts.applyDefaults()
	conn, err := openRaw(opts)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn}, nil
}

// rawConn is the seam between request/response shaping and the blpapi SDK.
// send issues one request to the named service and returns the decoded
// response messages, draining partial responses until the final one.
type rawConn interface {
	send(ctx context.Context, service, operation string, b body) ([]Message, error)
	close() error
}

// Session implements Client on top of a raw Terminal connection.
type Session struct {
	conn rawConn
}

// Close implements Client.
func (s *Session) Close() error {
	return s.conn.close()
}

// ReferenceData implements Client.
func (s *Session) ReferenceData(ctx context.Context, req RefDataRequest) ([]SecurityData, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, refDataService, "ReferenceDataRequest", req.body())
	if err != nil {
		return nil, err
	}
	return parseReferenceData(msgs)
}

// BulkData implements Client.
func (s *Session) BulkData(ctx context.Context, req RefDataRequest) ([]BulkRow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, refDataService, req.operation(), req.body())
	if err != nil {
		return nil, err
	}
	return parseBulkData(msgs)
}

// HistoricalData implements Client.
func (s *Session) HistoricalData(ctx context.Context, req HistoricalRequest) ([]HistoricalSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, refDataService, "HistoricalDataRequest", req.body())
	if err != nil {
		return nil, err
	}
	return parseHistoricalData(msgs)
}

// IntradayBars implements Client.
func (s *Session) IntradayBars(ctx context.Context, req IntradayBarRequest) ([]Bar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, refDataService, "IntradayBarRequest", req.body())
	if err != nil {
		return nil, err
	}
	return parseIntradayBars(msgs)
}

// IntradayTicks implements Client.
func (s *Session) IntradayTicks(ctx context.Context, req IntradayTickRequest) ([]Tick, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, refDataService, "IntradayTickRequest", req.body())
	if err != nil {
		return nil, err
	}
	return parseIntradayTicks(msgs)
}

// EquityScreen implements Client.
func (s *Session) EquityScreen(ctx context.Context, req ScreenRequest) ([]ScreenRow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msgs, err := s.conn.send(ctx, exrService, "BeqsRequest", req.body())
	if err != nil {
		return nil, err
	}
	return parseEquityScreen(msgs)
}

// SDKAvailable reports whether the binary was built with blpapi SDK support.
func SDKAvailable() bool {
	return sdkAvailable
}

// Unavailable returns a Client whose every query fails with err. It stands
// in when no Terminal session could be opened at startup, so the server
// still starts and tool calls report the underlying problem.
func Unavailable(err error) Client {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) ReferenceData(context.Context, RefDataRequest) ([]SecurityData, error) {
	return nil, u.err
}

func (u unavailable) BulkData(context.Context, RefDataRequest) ([]BulkRow, error) {
	return nil, u.err
}

func (u unavailable) HistoricalData(context.Context, HistoricalRequest) ([]HistoricalSeries, error) {
	return nil, u.err
}

func (u unavailable) IntradayBars(context.Context, IntradayBarRequest) ([]Bar, error) {
	return nil, u.err
}

func (u unavailable) IntradayTicks(context.Context, IntradayTickRequest) ([]Tick, error) {
	return nil, u.err
}

func (u unavailable) EquityScreen(context.Context, ScreenRequest) ([]ScreenRow, error) {
	return nil, u.err
}

func (u unavailable) Close() error {
	return nil
}
