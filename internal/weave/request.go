package weave

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"WeaveSync/internal/collection"
	"WeaveSync/internal/wbo"
)

// Function - третий сегмент пути.
type Function string

const (
	FunctionInfo     Function = "info"
	FunctionStorage  Function = "storage"
	FunctionPassword Function = "password"
)

// Заголовки протокола.
const (
	HeaderIfUnmodifiedSince = "X-If-Unmodified-Since"
	HeaderConfirmDelete     = "X-Confirm-Delete"
	HeaderTimestamp         = "X-Weave-Timestamp"
	HeaderRecords           = "X-Weave-Records"
)

var supportedVersions = map[string]bool{"0.5": true, "1.0": true}

var userNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

// Input - то, что хост-слой отдаёт парсеру: метод, путь без префикса, заголовки, query и тело.
type Input struct {
	Method string
	Path   string
	Header http.Header
	Query  url.Values
	Body   []byte
}

// Request - проверенный запрос протокола.
type Request struct {
	Method     string
	Version    string
	UserName   string
	Function   Function
	Collection string
	ID         string

	Query  url.Values
	Accept string
	Body   []byte

	// IfUnmodifiedSince != nil, если пришёл X-If-Unmodified-Since.
	IfUnmodifiedSince *float64
	ConfirmDelete     bool

	AuthUser     string
	AuthPassword string
}

// ValidUserName проверяет допустимые символы и длину имени пользователя.
func ValidUserName(name string) bool {
	return userNameRe.MatchString(name)
}

// Parse разбирает и проверяет запрос. Правила проверяются строго по порядку,
// выигрывает первое нарушенное.
func Parse(in Input) (*Request, *Error) {
	segments := strings.Split(strings.Trim(in.Path, "/"), "/")
	if len(segments) < 3 || len(segments) > 5 {
		return nil, NewError(CodeInvalidProtocol, "unexpected path segment count")
	}
	for _, s := range segments {
		if s == "" {
			return nil, NewError(CodeInvalidProtocol, "empty path segment")
		}
	}
	isPassword := segments[2] == string(FunctionPassword)
	if isPassword != (len(segments) == 3) {
		return nil, NewError(CodeInvalidProtocol, "unexpected path segment count")
	}

	req := &Request{
		Method:   strings.ToUpper(in.Method),
		Version:  segments[0],
		UserName: strings.ToLower(segments[1]),
		Function: Function(segments[2]),
		Query:    in.Query,
		Body:     in.Body,
	}
	if len(segments) > 3 {
		req.Collection = segments[3]
	}
	if len(segments) > 4 {
		req.ID = segments[4]
	}
	if req.Query == nil {
		req.Query = url.Values{}
	}

	// 1
	if !supportedVersions[req.Version] {
		return nil, &Error{Code: CodeFunctionNotSupported, Status: http.StatusNotFound, Message: "unsupported version " + req.Version}
	}
	// 2
	if !ValidUserName(req.UserName) {
		return nil, NewError(CodeInvalidUsername, "invalid user name")
	}
	// 3
	switch req.Function {
	case FunctionInfo, FunctionStorage, FunctionPassword:
	default:
		return nil, NewError(CodeFunctionNotSupported, "unsupported function "+string(req.Function))
	}
	// 4
	if req.Function == FunctionPassword && req.Method != http.MethodPost {
		return nil, NewError(CodeInvalidProtocol, "password requires POST")
	}
	// 5
	if req.Function == FunctionInfo && req.Method != http.MethodGet {
		return nil, NewError(CodeInvalidProtocol, "info requires GET")
	}
	// 6
	if req.Method != http.MethodDelete && req.Function != FunctionPassword && !collection.Valid(req.Collection) {
		return nil, NewError(CodeInvalidCollection, "invalid collection name")
	}
	// 7
	if (req.Method == http.MethodPost || req.Method == http.MethodPut) && len(in.Body) == 0 {
		return nil, NewError(CodeInvalidProtocol, "empty body")
	}

	// 8, 9
	user, password, ok := (&http.Request{Header: in.Header}).BasicAuth()
	if !ok || user == "" || password == "" {
		return nil, NewError(CodeMissingPassword, "missing credentials")
	}
	if strings.ToLower(user) != req.UserName {
		return nil, NewError(CodeUseridPathMismatch, "credentials do not match path")
	}
	req.AuthUser = strings.ToLower(user)
	req.AuthPassword = password

	if v := in.Header.Get(HeaderIfUnmodifiedSince); v != "" {
		ts, err := wbo.ParseTimestamp(v)
		if err != nil {
			return nil, NewError(CodeInvalidProtocol, "bad "+HeaderIfUnmodifiedSince)
		}
		req.IfUnmodifiedSince = &ts
	}
	_, req.ConfirmDelete = in.Header[http.CanonicalHeaderKey(HeaderConfirmDelete)]
	req.Accept = in.Header.Get("Accept")

	return req, nil
}
