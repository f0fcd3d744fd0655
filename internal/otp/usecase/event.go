package usecase

import (
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
)

// DeliveryRequestedEvent asks a consumer to deliver an existing transaction.
type DeliveryRequestedEvent struct {
	TransactionID int64
	Attempt       int64
}

// LifecycleEvent describes a state change. It never carries the code.
type LifecycleEvent struct {
	Type           string
	TransactionID  int64
	Purpose        entity.Purpose
	Status         entity.Status
	DeliveryMethod entity.DeliveryMethod
	Reason         string
	Count          int64
	OccurredAt     time.Time
}
