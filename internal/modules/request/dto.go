package request

import (
	"time"

	"reppyroute/internal/domain"
	"reppyroute/internal/repository"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   int64
	Role domain.Role
}

type CreateRequestInput struct {
	VehicleID            *int64 `json:"vehicle_id" form:"vehicle_id"`
	CarMake              string `json:"car_make" form:"car_make"`
	CarModel             string `json:"car_model" form:"car_model"`
	CarYear              int    `json:"car_year" form:"car_year"`
	IssueType            string `json:"issue_type" form:"issue_type" validate:"required"`
	Description          string `json:"description" form:"description" validate:"required"`
	Location             string `json:"location" form:"location" validate:"required"`
	PreferredServiceType string `json:"preferred_service_type" form:"preferred_service_type"`
	TargetMechanicID     *int64 `json:"target_mechanic_id" form:"target_mechanic_id"`
	ContactPhone         string `json:"contact_phone" form:"contact_phone"`
}

type ListOpenQuery struct {
	IssueType   string `form:"issue_type"`
	Location    string `form:"location"`
	ServiceType string `form:"service_type"`
	Sort        string `form:"sort"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

type SubmitQuoteInput struct {
	Amount         float64 `json:"amount" validate:"gt=0"`
	Description    string  `json:"description" validate:"required"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0.5"`
}

// RequestDetail is a request with the quotes its viewer may see.
type RequestDetail struct {
	Request domain.RepairRequest   `json:"request"`
	Quotes  []repository.QuoteView `json:"quotes"`
	// Quoted is true while the request is open and has a pending quote.
	Quoted bool `json:"quoted"`
}

type PriceBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type PriceTrendPoint struct {
	Month   string  `json:"month"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

type PriceComparison struct {
	IssueType string            `json:"issue_type,omitempty"`
	Since     time.Time         `json:"since"`
	Count     int               `json:"count"`
	Min       float64           `json:"min"`
	Max       float64           `json:"max"`
	Average   float64           `json:"average"`
	Median    float64           `json:"median"`
	Buckets   []PriceBucket     `json:"buckets"`
	Trend     []PriceTrendPoint `json:"trend"`
	// Verdict is set when a candidate amount was supplied.
	Verdict string `json:"verdict,omitempty"`
}
