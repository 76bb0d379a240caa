package repo

import (
	"strings"
)

// Sort - порядок выдачи списка WBO.
type Sort string

const (
	SortNone   Sort = ""
	SortIndex  Sort = "index"  // sortindex по убыванию
	SortNewest Sort = "newest" // modified по убыванию
	SortOldest Sort = "oldest" // modified по возрастанию
)

// WboFilter - условия выборки и удаления списка WBO.
// Newer/Older и IndexAbove/IndexBelow - строгие границы.
type WboFilter struct {
	ID         string
	IDs        []string
	Newer      *float64
	Older      *float64
	IndexAbove *int64
	IndexBelow *int64
	Sort       Sort
	Limit      int
	Offset     int
	// Full=false - выбирается только id.
	Full bool
}

// IsEmpty - фильтр не сужает коллекцию.
func (f WboFilter) IsEmpty() bool {
	return f.ID == "" && len(f.IDs) == 0 && f.Newer == nil && f.Older == nil &&
		f.IndexAbove == nil && f.IndexBelow == nil && f.Sort == SortNone && f.Limit <= 0 && f.Offset <= 0
}

// paged - удаление нельзя выразить одним DELETE: нужен порядок или окно.
func (f WboFilter) paged() bool {
	return f.Limit > 0 || f.Offset > 0 || f.Sort != SortNone
}

// orderBy одинаков на всех диалектах: строки без sort_index идут последними
// (в Postgres NULL при DESC иначе были бы первыми), равные ключи упорядочены по id.
func (f WboFilter) orderBy() string {
	switch f.Sort {
	case SortIndex:
		return "CASE WHEN sort_index IS NULL THEN 1 ELSE 0 END, sort_index DESC, id"
	case SortNewest:
		return "modified DESC, id"
	case SortOldest:
		return "modified ASC, id"
	default:
		if f.Limit > 0 || f.Offset > 0 {
			return "id"
		}
		return ""
	}
}

// where собирает условие; при live=true отсекаются истёкшие строки.
func (f WboFilter) where(userID int64, collection int, now int64, live bool) (string, []any) {
	conds := []string{"user_id = ?", "collection = ?"}
	args := []any{userID, collection}
	if live {
		conds = append(conds, "ttl > ?")
		args = append(args, now)
	}
	if f.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, f.ID)
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ?")
		args = append(args, f.IDs)
	}
	if f.Newer != nil {
		conds = append(conds, "modified > ?")
		args = append(args, *f.Newer)
	}
	if f.Older != nil {
		conds = append(conds, "modified < ?")
		args = append(args, *f.Older)
	}
	if f.IndexAbove != nil {
		conds = append(conds, "sort_index > ?")
		args = append(args, *f.IndexAbove)
	}
	if f.IndexBelow != nil {
		conds = append(conds, "sort_index < ?")
		args = append(args, *f.IndexBelow)
	}
	return strings.Join(conds, " AND "), args
}

func (f WboFilter) columns() string {
	if f.Full {
		return strings.Join(wboColumns, ", ")
	}
	return "id"
}
