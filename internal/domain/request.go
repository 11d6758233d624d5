package domain

import "time"

type RequestStatus string

const (
	RequestOpen       RequestStatus = "open"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
	RequestDeclined   RequestStatus = "declined"
)

type ServiceType string

const (
	ServiceAny         ServiceType = "any"
	ServiceMobile      ServiceType = "mobile"
	ServiceIndependent ServiceType = "independent"
	ServiceDealership  ServiceType = "dealership"
)

func ParseServiceType(s string) (ServiceType, bool) {
	switch ServiceType(s) {
	case ServiceAny, ServiceMobile, ServiceIndependent, ServiceDealership:
		return ServiceType(s), true
	case "shop":
		// older clients sent "shop" for independent garages
		return ServiceIndependent, true
	}
	return "", false
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestOpen:       {RequestInProgress, RequestCancelled, RequestDeclined},
	RequestInProgress: {RequestCompleted},
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// RepairRequest is a car owner's posted issue. A non-nil TargetMechanicID
// marks a direct request addressed to one mechanic.
type RepairRequest struct {
	ID                   int64         `gorm:"column:id;primaryKey" json:"id"`
	CarOwnerID           int64         `gorm:"column:car_owner_id;index;not null" json:"car_owner_id"`
	VehicleID            *int64        `gorm:"column:vehicle_id" json:"vehicle_id,omitempty"`
	CarMake              string        `gorm:"column:car_make;not null" json:"car_make"`
	CarModel             string        `gorm:"column:car_model;not null" json:"car_model"`
	CarYear              int           `gorm:"column:car_year;not null" json:"car_year"`
	IssueType            string        `gorm:"column:issue_type;index;not null" json:"issue_type"`
	Description          string        `gorm:"column:description;not null" json:"description"`
	Location             string        `gorm:"column:location;not null" json:"location"`
	PreferredServiceType ServiceType   `gorm:"column:preferred_service_type;not null;default:any" json:"preferred_service_type"`
	TargetMechanicID     *int64        `gorm:"column:target_mechanic_id;index" json:"target_mechanic_id,omitempty"`
	Status               RequestStatus `gorm:"column:status;index;not null" json:"status"`
	AcceptedQuoteID      *int64        `gorm:"column:accepted_quote_id" json:"accepted_quote_id,omitempty"`
	AssignedMechanicID   *int64        `gorm:"column:assigned_mechanic_id;index" json:"assigned_mechanic_id,omitempty"`
	DiagnosticURL        string        `gorm:"column:diagnostic_url" json:"diagnostic_url,omitempty"`
	DiagnosticKey        string        `gorm:"column:diagnostic_key" json:"-"`
	ContactPhone         string        `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
	Version              int           `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt            time.Time     `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"column:updated_at" json:"updated_at"`
	CompletedAt          *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RepairRequest) TableName() string { return "repair_requests" }

func (r *RepairRequest) IsDirect() bool { return r.TargetMechanicID != nil }

// VehicleLabel is the "{make} {model}" fragment used in notification texts.
func (r *RepairRequest) VehicleLabel() string { return r.CarMake + " " + r.CarModel }

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
)

type RepairQuote struct {
	ID              int64       `gorm:"column:id;primaryKey" json:"id"`
	RepairRequestID int64       `gorm:"column:repair_request_id;not null;uniqueIndex:ux_quote_request_mechanic" json:"repair_request_id"`
	MechanicID      int64       `gorm:"column:mechanic_id;not null;uniqueIndex:ux_quote_request_mechanic;index" json:"mechanic_id"`
	Amount          float64     `gorm:"column:amount;not null" json:"amount"`
	Description     string      `gorm:"column:description;not null" json:"description"`
	EstimatedHours  float64     `gorm:"column:estimated_hours;not null" json:"estimated_hours"`
	Status          QuoteStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt       time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (RepairQuote) TableName() string { return "repair_quotes" }
