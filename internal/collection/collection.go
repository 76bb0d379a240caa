package collection

import (
	"regexp"
	"sort"
)

// None - код для коллекции, которой нет в каталоге.
const None = 0

// catalog - фиксированная таблица кодов коллекций, хранящихся в БД.
var catalog = map[int]string{
	1:  "clients",
	2:  "crypto",
	3:  "forms",
	4:  "history",
	5:  "keys",
	6:  "meta",
	7:  "bookmarks",
	8:  "prefs",
	9:  "tabs",
	10: "passwords",
	11: "addons",
}

var byName = func() map[string]int {
	m := make(map[string]int, len(catalog))
	for code, name := range catalog {
		m[name] = code
	}
	return m
}()

var nameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

// NameToCode возвращает код коллекции или None, если имя неизвестно.
func NameToCode(name string) int {
	return byName[name]
}

// CodeToName возвращает имя коллекции; для неизвестного кода - пустую строку.
func CodeToName(code int) string {
	return catalog[code]
}

// Valid проверяет формат имени коллекции (не наличие в каталоге).
func Valid(name string) bool {
	return nameRe.MatchString(name)
}

// Codes returns all catalog codes in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Names returns all catalog names ordered by code.
func Names() []string {
	codes := Codes()
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		names = append(names, catalog[c])
	}
	return names
}
