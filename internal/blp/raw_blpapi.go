//go:build blpapi

package blp

// In this file: the cgo binding to Bloomberg's blpapi C SDK. The SDK owns
// the BBComm wire protocol; this file only maps the neutral request body
// onto the SDK's element tree and decodes response events back into Message
// values. Requires the Bloomberg C/C++ SDK headers and library at build time
// (build with -tags blpapi).

/*
#cgo LDFLAGS: -lblpapi3_64

#include <stdlib.h>
#include <string.h>

#include <blpapi_correlationid.h>
#include <blpapi_datetime.h>
#include <blpapi_element.h>
#include <blpapi_event.h>
#include <blpapi_message.h>
#include <blpapi_name.h>
#include <blpapi_request.h>
#include <blpapi_service.h>
#include <blpapi_session.h>
#include <blpapi_sessionoptions.h>
#include <blpapi_types.h>

// The correlation id struct uses bitfields, which cgo cannot touch; build it
// in C instead.
static blpapi_CorrelationId_t blp_makeCorrelationId(unsigned long long v) {
	blpapi_CorrelationId_t cid;
	memset(&cid, 0, sizeof(cid));
	cid.size = sizeof(cid);
	cid.valueType = BLPAPI_CORRELATION_TYPE_INT;
	cid.value.intValue = v;
	return cid;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"
)

const sdkAvailable = true

// blpConn is the live rawConn over a blpapi session.
type blpConn struct {
	mu       sync.Mutex
	session  *C.blpapi_Session_t
	timeout  time.Duration
	services map[string]bool
	nextCID  uint64
}

// openRaw starts a synchronous blpapi session against BBComm.
func openRaw(opts Options) (rawConn, error) {
	sopts := C.blpapi_SessionOptions_create()
	defer C.blpapi_SessionOptions_destroy(sopts)

	chost := C.CString(opts.Host)
	defer C.free(unsafe.Pointer(chost))
	if rc := C.blpapi_SessionOptions_setServerHost(sopts, chost); rc != 0 {
		return nil, fmt.Errorf("set server host: blpapi error %d", int(rc))
	}
	if rc := C.blpapi_SessionOptions_setServerPort(sopts, C.ushort(opts.Port)); rc != 0 {
		return nil, fmt.Errorf("set server port: blpapi error %d", int(rc))
	}

	session := C.blpapi_Session_create(sopts, nil, nil, nil)
	if session == nil {
		return nil, fmt.Errorf("%w: session create failed", ErrNotConnected)
	}
	if rc := C.blpapi_Session_start(session); rc != 0 {
		C.blpapi_Session_destroy(session)
		return nil, fmt.Errorf("%w: session start failed (blpapi error %d): is the Terminal running on %s:%d?",
			ErrNotConnected, int(rc), opts.Host, opts.Port)
	}

	return &blpConn{
		session:  session,
		timeout:  opts.Timeout,
		services: make(map[string]bool),
	}, nil
}

func (c *blpConn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	C.blpapi_Session_stop(c.session)
	C.blpapi_Session_destroy(c.session)
	c.session = nil
	return nil
}

// send issues one request and drains events until the final RESPONSE. The
// session is synchronous, so requests are serialised on the connection lock.
func (c *blpConn) send(ctx context.Context, service, operation string, b body) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}

	if err := c.openService(service); err != nil {
		return nil, err
	}

	csvc := C.CString(service)
	defer C.free(unsafe.Pointer(csvc))
	var svc *C.blpapi_Service_t
	if rc := C.blpapi_Session_getService(c.session, &svc, csvc); rc != 0 {
		return nil, fmt.Errorf("get service %s: blpapi error %d", service, int(rc))
	}

	cop := C.CString(operation)
	defer C.free(unsafe.Pointer(cop))
	var req *C.blpapi_Request_t
	if rc := C.blpapi_Service_createRequest(svc, &req, cop); rc != 0 {
		return nil, fmt.Errorf("create %s: blpapi error %d", operation, int(rc))
	}
	defer C.blpapi_Request_destroy(req)

	if err := fillRequest(req, b); err != nil {
		return nil, fmt.Errorf("build %s: %w", operation, err)
	}

	c.nextCID++
	cid := C.blp_makeCorrelationId(C.ulonglong(c.nextCID))
	if rc := C.blpapi_Session_sendRequest(c.session, req, &cid, nil, nil, nil, 0); rc != 0 {
		return nil, fmt.Errorf("send %s: blpapi error %d", operation, int(rc))
	}

	return c.drainEvents(ctx)
}

func (c *blpConn) openService(service string) error {
	if c.services[service] {
		return nil
	}
	csvc := C.CString(service)
	defer C.free(unsafe.Pointer(csvc))
	if rc := C.blpapi_Session_openService(c.session, csvc); rc != 0 {
		return fmt.Errorf("open service %s: blpapi error %d", service, int(rc))
	}
	c.services[service] = true
	return nil
}

// drainEvents polls the event queue, collecting PARTIAL_RESPONSE messages
// until the final RESPONSE arrives, honouring both ctx and the session
// timeout.
func (c *blpConn) drainEvents(ctx context.Context) ([]Message, error) {
	const pollMs = 500
	deadline := time.Now().Add(c.timeout)

	var msgs []Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrResponseTimeout
		}

		var event *C.blpapi_Event_t
		if rc := C.blpapi_Session_nextEvent(c.session, &event, pollMs); rc != 0 {
			return nil, fmt.Errorf("next event: blpapi error %d", int(rc))
		}

		etype := C.blpapi_Event_eventType(event)
		switch etype {
		case C.BLPAPI_EVENTTYPE_PARTIAL_RESPONSE, C.BLPAPI_EVENTTYPE_RESPONSE:
			msgs = append(msgs, eventMessages(event)...)
		}
		final := etype == C.BLPAPI_EVENTTYPE_RESPONSE
		C.blpapi_Event_release(event)
		if final {
			return msgs, nil
		}
	}
}

// eventMessages decodes every message in an event.
func eventMessages(event *C.blpapi_Event_t) []Message {
	iter := C.blpapi_MessageIterator_create(event)
	if iter == nil {
		return nil
	}
	defer C.blpapi_MessageIterator_destroy(iter)

	var msgs []Message
	var msg *C.blpapi_Message_t
	for C.blpapi_MessageIterator_next(iter, &msg) == 0 {
		m := Message{Type: C.GoString(C.blpapi_Name_string(C.blpapi_Message_messageType(msg)))}
		if root := C.blpapi_Message_elements(msg); root != nil {
			if data, ok := decodeElement(root).(map[string]any); ok {
				m.Data = data
			}
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// fillRequest maps the neutral body onto the request's element tree.
func fillRequest(req *C.blpapi_Request_t, b body) error {
	root := C.blpapi_Request_elements(req)

	for name, values := range b.arrays {
		el, err := getElement(root, name)
		if err != nil {
			return err
		}
		for _, v := range values {
			cv := C.CString(v)
			rc := C.blpapi_Element_setValueString(el, cv, C.BLPAPI_ELEMENT_INDEX_END)
			C.free(unsafe.Pointer(cv))
			if rc != 0 {
				return fmt.Errorf("append %s value %q: blpapi error %d", name, v, int(rc))
			}
		}
	}

	for name, value := range b.values {
		if err := setScalar(root, name, value); err != nil {
			return err
		}
	}

	if len(b.overrides) > 0 {
		ovr, err := getElement(root, "overrides")
		if err != nil {
			return err
		}
		for fieldID, value := range b.overrides {
			var item *C.blpapi_Element_t
			if rc := C.blpapi_Element_appendElement(ovr, &item); rc != 0 {
				return fmt.Errorf("append override: blpapi error %d", int(rc))
			}
			if err := setStringElement(item, "fieldId", fieldID); err != nil {
				return err
			}
			if err := setStringElement(item, "value", value); err != nil {
				return err
			}
		}
	}

	return nil
}

func getElement(parent *C.blpapi_Element_t, name string) (*C.blpapi_Element_t, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var el *C.blpapi_Element_t
	if rc := C.blpapi_Element_getElement(parent, &el, cname, nil); rc != 0 {
		return nil, fmt.Errorf("element %s: blpapi error %d", name, int(rc))
	}
	return el, nil
}

func setStringElement(parent *C.blpapi_Element_t, name, value string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))
	if rc := C.blpapi_Element_setElementString(parent, cname, nil, cvalue); rc != 0 {
		return fmt.Errorf("set %s: blpapi error %d", name, int(rc))
	}
	return nil
}

func setScalar(parent *C.blpapi_Element_t, name string, value any) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var rc C.int
	switch v := value.(type) {
	case string:
		cv := C.CString(v)
		rc = C.blpapi_Element_setElementString(parent, cname, nil, cv)
		C.free(unsafe.Pointer(cv))
	case bool:
		b := C.blpapi_Bool_t(0)
		if v {
			b = 1
		}
		rc = C.blpapi_Element_setElementBool(parent, cname, nil, b)
	case int:
		rc = C.blpapi_Element_setElementInt32(parent, cname, nil, C.blpapi_Int32_t(v))
	case int64:
		rc = C.blpapi_Element_setElementInt64(parent, cname, nil, C.blpapi_Int64_t(v))
	case float64:
		// JSON numbers arrive as float64; integral values are set as ints so
		// INT32 request elements (e.g. interval) accept them.
		if v == float64(int64(v)) {
			rc = C.blpapi_Element_setElementInt32(parent, cname, nil, C.blpapi_Int32_t(int32(v)))
		} else {
			rc = C.blpapi_Element_setElementFloat64(parent, cname, nil, C.blpapi_Float64_t(v))
		}
	default:
		cv := C.CString(fmt.Sprintf("%v", v))
		rc = C.blpapi_Element_setElementString(parent, cname, nil, cv)
		C.free(unsafe.Pointer(cv))
	}
	if rc != 0 {
		return fmt.Errorf("set %s=%v: blpapi error %d", name, value, int(rc))
	}
	return nil
}

// decodeElement converts an element tree to the neutral Go form described on
// Message.
func decodeElement(el *C.blpapi_Element_t) any {
	if C.blpapi_Element_isArray(el) != 0 {
		n := int(C.blpapi_Element_numValues(el))
		out := make([]any, 0, n)
		dt := C.blpapi_Element_datatype(el)
		for i := 0; i < n; i++ {
			if dt == C.BLPAPI_DATATYPE_SEQUENCE || dt == C.BLPAPI_DATATYPE_CHOICE {
				var sub *C.blpapi_Element_t
				if C.blpapi_Element_getValueAsElement(el, &sub, C.size_t(i)) == 0 {
					out = append(out, decodeElement(sub))
				}
			} else {
				out = append(out, decodeScalar(el, i))
			}
		}
		return out
	}

	switch C.blpapi_Element_datatype(el) {
	case C.BLPAPI_DATATYPE_SEQUENCE:
		n := int(C.blpapi_Element_numElements(el))
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			var sub *C.blpapi_Element_t
			if C.blpapi_Element_getElementAt(el, &sub, C.size_t(i)) != 0 {
				continue
			}
			name := C.GoString(C.blpapi_Name_string(C.blpapi_Element_name(sub)))
			out[name] = decodeElement(sub)
		}
		return out
	case C.BLPAPI_DATATYPE_CHOICE:
		var sub *C.blpapi_Element_t
		if C.blpapi_Element_getChoice(el, &sub) == 0 {
			name := C.GoString(C.blpapi_Name_string(C.blpapi_Element_name(sub)))
			return map[string]any{name: decodeElement(sub)}
		}
		return nil
	default:
		if C.blpapi_Element_isNull(el) != 0 {
			return nil
		}
		return decodeScalar(el, 0)
	}
}

// decodeScalar converts the i-th scalar value of an element.
func decodeScalar(el *C.blpapi_Element_t, i int) any {
	idx := C.size_t(i)
	switch C.blpapi_Element_datatype(el) {
	case C.BLPAPI_DATATYPE_BOOL:
		var v C.blpapi_Bool_t
		if C.blpapi_Element_getValueAsBool(el, &v, idx) == 0 {
			return v != 0
		}
	case C.BLPAPI_DATATYPE_INT32:
		var v C.blpapi_Int32_t
		if C.blpapi_Element_getValueAsInt32(el, &v, idx) == 0 {
			return int64(v)
		}
	case C.BLPAPI_DATATYPE_INT64:
		var v C.blpapi_Int64_t
		if C.blpapi_Element_getValueAsInt64(el, &v, idx) == 0 {
			return int64(v)
		}
	case C.BLPAPI_DATATYPE_FLOAT32, C.BLPAPI_DATATYPE_FLOAT64:
		var v C.blpapi_Float64_t
		if C.blpapi_Element_getValueAsFloat64(el, &v, idx) == 0 {
			return float64(v)
		}
	case C.BLPAPI_DATATYPE_DATE, C.BLPAPI_DATATYPE_TIME, C.BLPAPI_DATATYPE_DATETIME:
		var dt C.blpapi_Datetime_t
		if C.blpapi_Element_getValueAsDatetime(el, &dt, idx) == 0 {
			return formatDatetime(dt)
		}
	default:
		var v *C.char
		if C.blpapi_Element_getValueAsString(el, &v, idx) == 0 {
			return C.GoString(v)
		}
	}
	return nil
}

// formatDatetime renders a blpapi datetime in ISO form, keeping only the
// parts Bloomberg actually populated.
func formatDatetime(dt C.blpapi_Datetime_t) string {
	hasDate := dt.parts&C.BLPAPI_DATETIME_DATE_PART != 0
	hasTime := dt.parts&C.BLPAPI_DATETIME_TIME_PART != 0

	date := fmt.Sprintf("%04d-%02d-%02d", int(dt.year), int(dt.month), int(dt.day))
	clock := fmt.Sprintf("%02d:%02d:%02d", int(dt.hours), int(dt.minutes), int(dt.seconds))

	switch {
	case hasDate && hasTime:
		return date + "T" + clock
	case hasDate:
		return date
	case hasTime:
		return clock
	default:
		return ""
	}
}
