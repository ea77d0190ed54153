package models

import "time"

// DeliveryRecord is one delivery attempt mirrored into the audit database
type DeliveryRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CycleAt    time.Time  `gorm:"index" json:"cycle_at"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	Origin     Origin     `json:"origin"`
	AccountID  int        `gorm:"index" json:"account_id"`
	Outcome    Outcome    `gorm:"index" json:"outcome"`
	ProviderID string     `json:"provider_id"`
	ErrorClass ErrorClass `json:"error_class"`
	Error      string     `gorm:"type:text" json:"error"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// DeliveryRecords flattens a history record into one row per account
func DeliveryRecords(rec HistoryRecord) []*DeliveryRecord {
	rows := make([]*DeliveryRecord, 0, len(rec.Results))
	for _, r := range rec.Results {
		row := &DeliveryRecord{
			CycleAt:    rec.Timestamp,
			Text:       rec.Text,
			Origin:     rec.Origin,
			AccountID:  r.Account,
			Outcome:    r.Outcome,
			ErrorClass: r.ErrorClass,
		}
		if r.ID != nil {
			row.ProviderID = *r.ID
		}
		if r.Error != nil {
			row.Error = *r.Error
		}
		rows = append(rows, row)
	}
	return rows
}
