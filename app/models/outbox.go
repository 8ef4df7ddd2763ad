package models

import "time"

// Event topics written to the outbox.
const (
	TopicOrderCreated = "order.created"
	TopicOrderUpdated = "order.updated"
)

// OutboxEvent is a domain event recorded in the same unit of work as the
// change it describes and relayed asynchronously.
type OutboxEvent struct {
	ID          string     `gorm:"primaryKey;size:36"  json:"id"                    bson:"_id"`
	Topic       string     `gorm:"size:64;not null"    json:"topic"                 bson:"topic"`
	AggregateID string     `gorm:"size:24;index"       json:"aggregateId"           bson:"aggregateId"`
	Payload     string     `gorm:"type:text"           json:"payload"               bson:"payload"`
	Attempts    int        `gorm:"not null;default:0"  json:"attempts"              bson:"attempts"`
	LastError   string     `gorm:"type:text"           json:"lastError,omitempty"   bson:"lastError,omitempty"`
	PublishedAt *time.Time `gorm:"index"               json:"publishedAt,omitempty" bson:"publishedAt"`
	CreatedAt   time.Time  `gorm:"index"               json:"createdAt"             bson:"createdAt"`
}

// FailedJob is a queue job that exhausted its retries.
type FailedJob struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"       bson:"_id"`
	Type     string    `gorm:"size:128;index"     json:"type"     bson:"type"`
	Payload  string    `gorm:"type:text"          json:"payload"  bson:"payload"`
	Error    string    `gorm:"type:text"          json:"error"    bson:"error"`
	Attempts int       `                          json:"attempts" bson:"attempts"`
	FailedAt time.Time `gorm:"index"              json:"failedAt" bson:"failedAt"`
}
