package wbo

import "encoding/json"

// BatchResult накапливает итог пакетной записи (POST коллекции).
// Не сохраняется, живёт один запрос.
type BatchResult struct {
	Modified float64
	Success  []string
	Failed   map[string][]string
}

// NewBatchResult создаёт пустой результат с общим временем пакета.
func NewBatchResult(modified float64) *BatchResult {
	return &BatchResult{
		Modified: modified,
		Success:  []string{},
		Failed:   map[string][]string{},
	}
}

// AddSuccess добавляет id в порядке поступления.
func (b *BatchResult) AddSuccess(id string) {
	b.Success = append(b.Success, id)
}

// AddFailure дописывает причины отказа для id.
func (b *BatchResult) AddFailure(id string, reasons ...string) {
	if len(reasons) == 0 {
		reasons = []string{"unknown error"}
	}
	b.Failed[id] = append(b.Failed[id], reasons...)
}

type batchJSON struct {
	Modified json.Number         `json:"modified"`
	Success  []string            `json:"success"`
	Failed   map[string][]string `json:"failed"`
}

func (b *BatchResult) MarshalJSON() ([]byte, error) {
	out := batchJSON{
		Modified: json.Number(FormatTimestamp(b.Modified)),
		Success:  b.Success,
		Failed:   b.Failed,
	}
	if out.Success == nil {
		out.Success = []string{}
	}
	if out.Failed == nil {
		out.Failed = map[string][]string{}
	}
	return json.Marshal(out)
}
