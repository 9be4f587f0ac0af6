package dto

// Device bridge DTOs. The UI owns the platform location API and reports
// what it gets through these.

type DevicePermissionRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

type DevicePositionRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

type DevicePositionResponse struct {
	Delivered int `json:"delivered"` // pending reads the fix satisfied
}
