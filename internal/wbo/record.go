package wbo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"WeaveSync/internal/model"

	"go.uber.org/multierr"
)

// Ограничения полей WBO.
const (
	MaxIDLength     = 64
	MaxPayloadBytes = 262144
	MinSortIndex    = -999999999
	MaxSortIndex    = 999999999
	MaxTTLSeconds   = 31536000
)

// ErrNotObject - тело записи не является JSON-объектом.
var ErrNotObject = errors.New("wbo: json object expected")

// FieldError - ошибка приведения типа конкретного поля.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Violation - нарушение правил валидации.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) Error() string {
	return v.Field + ": " + v.Message
}

// Record - один WBO в том виде, в каком его прислал клиент или вернула БД.
// Незаданные поля остаются nil и не попадают в JSON.
type Record struct {
	ID         *string
	Collection *string
	Modified   *float64
	SortIndex  *int64
	Payload    *string
	// TTL - относительный срок жизни в секундах, как его присылает клиент.
	TTL *int64
}

// PopulateJSON разбирает JSON-объект и заполняет запись.
func (r *Record) PopulateJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return ErrNotObject
	}
	return r.Populate(fields)
}

// Populate заполняет запись из карты полей. Неизвестные поля игнорируются,
// ошибки приведения типов собираются по всем полям.
func (r *Record) Populate(fields map[string]json.RawMessage) error {
	var errs error
	for name, raw := range fields {
		if isNull(raw) {
			continue
		}
		var err error
		switch name {
		case "id":
			r.ID, err = stringField(raw)
		case "collection":
			r.Collection, err = stringField(raw)
		case "payload":
			r.Payload, err = stringField(raw)
		case "modified":
			r.Modified, err = floatField(raw)
		case "sortindex":
			r.SortIndex, err = intField(raw)
		case "ttl":
			r.TTL, err = intField(raw)
		default:
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, &FieldError{Field: name, Err: err})
		}
	}
	return errs
}

// Validate возвращает все найденные нарушения, а не только первое.
func (r *Record) Validate() []Violation {
	var vs []Violation
	switch {
	case r.ID == nil || *r.ID == "":
		vs = append(vs, Violation{Field: "id", Message: "missing"})
	case len(*r.ID) > MaxIDLength:
		vs = append(vs, Violation{Field: "id", Message: fmt.Sprintf("longer than %d characters", MaxIDLength)})
	}
	if r.Modified == nil {
		vs = append(vs, Violation{Field: "modified", Message: "missing"})
	}
	if r.SortIndex != nil && (*r.SortIndex < MinSortIndex || *r.SortIndex > MaxSortIndex) {
		vs = append(vs, Violation{Field: "sortindex", Message: "out of range"})
	}
	if r.TTL != nil && (*r.TTL < 0 || *r.TTL > MaxTTLSeconds) {
		vs = append(vs, Violation{Field: "ttl", Message: "out of range"})
	}
	if r.Payload != nil && len(*r.Payload) > MaxPayloadBytes {
		vs = append(vs, Violation{Field: "payload", Message: fmt.Sprintf("larger than %d bytes", MaxPayloadBytes)})
	}
	return vs
}

// Combine склеивает нарушения в одну ошибку (для логов).
func Combine(vs []Violation) error {
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		errs = append(errs, v)
	}
	return multierr.Combine(errs...)
}

// Reasons - человекочитаемые причины для BatchResult.
func Reasons(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Error())
	}
	return out
}

// PayloadSize - размер payload в байтах; nil, если payload не задан.
func (r *Record) PayloadSize() *int64 {
	if r.Payload == nil {
		return nil
	}
	n := int64(len(*r.Payload))
	return &n
}

type recordJSON struct {
	ID        *string      `json:"id,omitempty"`
	Modified  *json.Number `json:"modified,omitempty"`
	Payload   *string      `json:"payload,omitempty"`
	SortIndex *int64       `json:"sortindex,omitempty"`
	TTL       *int64       `json:"ttl,omitempty"`
}

// MarshalJSON выводит только заданные поля: клиенты ветвятся по наличию ключа.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{ID: r.ID, Payload: r.Payload, SortIndex: r.SortIndex, TTL: r.TTL}
	if r.Modified != nil {
		n := json.Number(FormatTimestamp(*r.Modified))
		out.Modified = &n
	}
	return json.Marshal(out)
}

// ToModel превращает проверенную запись в строку БД.
// Относительный ttl пересчитывается в абсолютный от modified.
func (r *Record) ToModel(userID int64, collectionCode int) model.Wbo {
	w := model.Wbo{
		UserID:      userID,
		Collection:  collectionCode,
		SortIndex:   r.SortIndex,
		Payload:     r.Payload,
		PayloadSize: r.PayloadSize(),
		TTL:         model.TTLNever,
	}
	if r.ID != nil {
		w.ID = *r.ID
	}
	if r.Modified != nil {
		w.Modified = *r.Modified
	}
	if r.TTL != nil && *r.TTL > 0 {
		w.TTL = int64(math.Floor(w.Modified)) + *r.TTL
	}
	return w
}

// FromModel строит запись из строки БД. При full=false заполняется только id.
// ttl клиенту не возвращается.
func FromModel(w model.Wbo, full bool) Record {
	id := w.ID
	r := Record{ID: &id}
	if !full {
		return r
	}
	modified := w.Modified
	r.Modified = &modified
	r.SortIndex = w.SortIndex
	r.Payload = w.Payload
	return r
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(raw json.RawMessage) (*string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("string expected")
	}
	return &s, nil
}

// numberText принимает как число, так и строку с числом.
func numberText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("number expected")
	}
	return n.String(), nil
}

func floatField(raw json.RawMessage) (*float64, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	v, err := ParseTimestamp(text)
	if err != nil {
		return nil, errors.New("number expected")
	}
	return &v, nil
}

func intField(raw json.RawMessage) (*int64, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return nil, errors.New("integer expected")
	}
	v := int64(f)
	return &v, nil
}
