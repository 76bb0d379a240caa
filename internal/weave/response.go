package weave

import (
	"encoding/json"
	"net/http"
	"strconv"

	"WeaveSync/internal/wbo"
)

// Response - готовый ответ; хост-слой пишет его как есть.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse создаёт ответ с обязательным X-Weave-Timestamp.
func NewResponse(status int, ts float64) *Response {
	h := http.Header{}
	h.Set(HeaderTimestamp, wbo.FormatTimestamp(ts))
	return &Response{Status: status, Header: h}
}

// JSONResponse - 200 с телом v в JSON.
func JSONResponse(ts float64, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(http.StatusOK, ts)
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = body
	return resp, nil
}

// TimestampResponse - 200 с телом-числом, например новым modified.
func TimestampResponse(ts, value float64) *Response {
	resp := NewResponse(http.StatusOK, ts)
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = []byte(wbo.FormatTimestamp(value))
	return resp
}

// ErrorResponse переводит ошибку протокола в ответ.
// Если у ошибки есть код, телом служит сам код; иначе короткий текст по статусу.
func ErrorResponse(e *Error, ts float64) *Response {
	resp := NewResponse(e.Status, ts)
	resp.Header.Set("Content-Type", "application/json")
	if e.Status == http.StatusUnauthorized {
		resp.Header.Set("WWW-Authenticate", `Basic realm="Weave"`)
	}
	if e.Code != 0 {
		resp.Body = []byte(strconv.Itoa(int(e.Code)))
		return resp
	}
	msg := "Service Unavailable"
	switch e.Status {
	case http.StatusUnauthorized:
		msg = "Unauthorized"
	case http.StatusNotFound:
		msg = "Not found"
	case http.StatusBadRequest:
		msg = "Bad request"
	case http.StatusRequestEntityTooLarge:
		msg = "Request entity too large"
	}
	resp.Body, _ = json.Marshal(msg)
	return resp
}
