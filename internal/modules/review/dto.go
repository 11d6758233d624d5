package review

type CreateReviewRequest struct {
	MechanicID      int64  `json:"mechanic_id" validate:"required,gt=0"`
	RepairRequestID int64  `json:"repair_request_id" validate:"required,gt=0"`
	Rating          int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment         string `json:"comment,omitempty" validate:"max=2000"`
}

type SetHiddenRequest struct {
	Hidden *bool `json:"hidden"`
}
