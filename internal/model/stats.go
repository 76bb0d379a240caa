package model

import "time"

// CollectionTimestamp - результат агрегата MAX(modified) по коллекции.
type CollectionTimestamp struct {
	Collection int
	Modified   float64
}

// CollectionCount - результат COUNT(*) по коллекции.
type CollectionCount struct {
	Collection int
	Count      int64
}

// CollectionUsage - суммарный размер payload по коллекции, в байтах.
type CollectionUsage struct {
	Collection int
	Bytes      int64
}

// UserSummary - строка отчёта getUserList.
type UserSummary struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	WboCount  int64     `json:"wbo_count"`
	TotalKB   float64   `json:"total_kb"`
}

// CollectionDetails - сводка по одной коллекции пользователя.
type CollectionDetails struct {
	Name     string  `json:"name"`
	Count    int64   `json:"count"`
	Bytes    int64   `json:"bytes"`
	Modified float64 `json:"modified"`
}

// UserDetails - отчёт getUserDetails.
type UserDetails struct {
	UserSummary
	Collections []CollectionDetails `json:"collections"`
}
