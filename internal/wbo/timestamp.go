package wbo

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp переводит время в секунды с точностью до сотых - формат modified.
func Timestamp(t time.Time) float64 {
	return math.Round(float64(t.UnixMilli())/10) / 100
}

// FormatTimestamp форматирует modified ровно с двумя знаками после точки.
func FormatTimestamp(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseTimestamp разбирает число секунд и округляет его до сотых.
func ParseTimestamp(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return math.Round(v*100) / 100, nil
}
