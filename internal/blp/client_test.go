package blp

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeConn records the last request and replies with canned messages.
type fakeConn struct {
	service   string
	operation string
	body      body
	msgs      []Message
	err       error
	closed    bool
}

func (f *fakeConn) send(_ context.Context, service, operation string, b body) ([]Message, error) {
	f.service = service
	f.operation = operation
	f.body = b
	return f.msgs, f.err
}

func (f *fakeConn) close() error {
	f.closed = true
	return nil
}

func TestSessionReferenceData(t *testing.T) {
	conn := &fakeConn{msgs: []Message{refDataMsg()}}
	s := &Session{conn: conn}

	got, err := s.ReferenceData(context.Background(), RefDataRequest{
		Securities: []string{"AAPL US Equity", "BOGUS US Equity"},
		Fields:     []string{"PX_LAST", "NAME"},
	})
	if err != nil {
		t.Fatalf("ReferenceData() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ReferenceData() returned %d records, want 2", len(got))
	}
	if conn.service != "//blp/refdata" {
		t.Errorf("service = %q, want //blp/refdata", conn.service)
	}
	if conn.operation != "ReferenceDataRequest" {
		t.Errorf("operation = %q, want ReferenceDataRequest", conn.operation)
	}
	if got := conn.body.arrays["fields"]; len(got) != 2 {
		t.Errorf("fields = %v, want 2 entries", got)
	}
}

func TestSessionValidatesBeforeSending(t *testing.T) {
	conn := &fakeConn{}
	s := &Session{conn: conn}

	_, err := s.ReferenceData(context.Background(), RefDataRequest{})
	if err == nil {
		t.Fatal("ReferenceData() should reject an empty request")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error type = %T, want *ValidationError", err)
	}
	if conn.operation != "" {
		t.Error("invalid request must not reach the connection")
	}
}

func TestSessionBulkDataPortfolioOperation(t *testing.T) {
	conn := &fakeConn{}
	s := &Session{conn: conn}

	req := RefDataRequest{
		Securities: []string{"U1234567-1 Client"},
		Fields:     []string{"PORTFOLIO_MEMBERS"},
		Portfolio:  true,
	}
	if _, err := s.BulkData(context.Background(), req); err != nil {
		t.Fatalf("BulkData() error = %v", err)
	}
	if conn.operation != "PortfolioDataRequest" {
		t.Errorf("operation = %q, want PortfolioDataRequest", conn.operation)
	}
}

func TestSessionEquityScreenUsesExrService(t *testing.T) {
	conn := &fakeConn{}
	s := &Session{conn: conn}

	_, err := s.EquityScreen(context.Background(), ScreenRequest{Name: "My Screen"})
	if err != nil {
		t.Fatalf("EquityScreen() error = %v", err)
	}
	if conn.service != "//blp/exrsvc" {
		t.Errorf("service = %q, want //blp/exrsvc", conn.service)
	}
	if conn.operation != "BeqsRequest" {
		t.Errorf("operation = %q, want BeqsRequest", conn.operation)
	}
}

func TestSessionPassesThroughConnError(t *testing.T) {
	conn := &fakeConn{err: ErrResponseTimeout}
	s := &Session{conn: conn}

	_, err := s.HistoricalData(context.Background(), HistoricalRequest{
		Securities: []string{"AAPL US Equity"},
		Fields:     []string{"PX_LAST"},
		Start:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrResponseTimeout) {
		t.Errorf("error = %v, want ErrResponseTimeout", err)
	}
}

func TestSessionClose(t *testing.T) {
	conn := &fakeConn{}
	s := &Session{conn: conn}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !conn.closed {
		t.Error("Close() did not close the connection")
	}
}
