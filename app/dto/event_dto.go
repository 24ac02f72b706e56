package dto

// CreateEventRequest creates a conference together with its identifier settings.
// Zero values fall back to REG, 1, ABS-<code>, 1 and a pad width of 4.
type CreateEventRequest struct {
	Code                    string  `json:"code" validate:"required,min=2,max=32,alphanum"`
	Name                    string  `json:"name" validate:"required,max=255"`
	RegistrationPrefix      string  `json:"registration_prefix,omitempty" validate:"omitempty,max=32"`
	RegistrationStartNumber int64   `json:"registration_start_number,omitempty" validate:"omitempty,min=1"`
	AbstractPrefix          *string `json:"abstract_prefix,omitempty" validate:"omitempty,max=32"`
	AbstractStartNumber     int64   `json:"abstract_start_number,omitempty" validate:"omitempty,min=1"`
	IDPadWidth              int     `json:"id_pad_width,omitempty" validate:"omitempty,min=1,max=18"`
}

// EventResponse describes an event and the identifier settings in effect
type EventResponse struct {
	UUID                    string `json:"uuid"`
	Code                    string `json:"code"`
	Name                    string `json:"name"`
	RegistrationPrefix      string `json:"registration_prefix"`
	RegistrationStartNumber int64  `json:"registration_start_number"`
	AbstractPrefix          string `json:"abstract_prefix"`
	AbstractStartNumber     int64  `json:"abstract_start_number"`
	IDPadWidth              int    `json:"id_pad_width"`
	IsActive                bool   `json:"is_active"`
	CreatedAt               string `json:"created_at"`
}
