package model

import (
	"time"

	"gorm.io/gorm"
)

// BillingWebhookEvent stores provider webhook payloads with a unique
// (provider, event id) pair so redelivered events are processed once.
type BillingWebhookEvent struct {
	gorm.Model
	Provider        string     `json:"provider" gorm:"uniqueIndex:idx_provider_event,priority:1;not null"`
	ProviderEventID string     `json:"provider_event_id" gorm:"uniqueIndex:idx_provider_event,priority:2;not null"`
	EventType       string     `json:"event_type" gorm:"index"`
	Payload         string     `json:"payload" gorm:"type:text"`
	ProcessedAt     *time.Time `json:"processed_at"`
	ProcessingError string     `json:"processing_error" gorm:"type:text"`
}
