package garage

type VehicleInput struct {
	Make     string `json:"make" validate:"required,max=60"`
	Model    string `json:"model" validate:"required,max=60"`
	Year     int    `json:"year" validate:"required,gte=1900,lte=2100"`
	VIN      string `json:"vin" validate:"omitempty,len=17,alphanum"`
	Mileage  int    `json:"mileage" validate:"gte=0"`
	Nickname string `json:"nickname" validate:"omitempty,max=60"`
}

type DocumentInput struct {
	Title     string `form:"title" validate:"required,max=120"`
	DocType   string `form:"doc_type" validate:"omitempty,oneof=receipt invoice inspection insurance registration diagnostic other"`
	VehicleID *int64 `form:"vehicle_id" validate:"omitempty,gt=0"`
}
