package model

// TTLNever - абсолютный ttl «никогда не истекает».
const TTLNever int64 = 2100000000

// Wbo - серверная модель Weave Basic Object.
// Ключ (UserID, Collection, ID) выбирается клиентом и не меняется.
type Wbo struct {
	UserID     int64  `gorm:"primaryKey;autoIncrement:false"`
	Collection int    `gorm:"primaryKey;autoIncrement:false"`
	ID         string `gorm:"primaryKey;size:64"`

	// Modified - серверное время записи, секунды с точностью до сотых. Он же версия.
	Modified  float64 `gorm:"type:decimal(12,2);not null;index"`
	SortIndex *int64

	Payload     *string `gorm:"size:262144"`
	PayloadSize *int64

	// TTL - абсолютное время истечения (unix seconds).
	TTL int64 `gorm:"not null;default:2100000000;index"`
}

func (Wbo) TableName() string { return "wbos" }
