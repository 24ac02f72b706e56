package dto

// SubmitAbstractRequest submits an abstract, optionally linked to an existing registration
type SubmitAbstractRequest struct {
	EventUUID            string  `json:"-"`
	Title                string  `json:"title" validate:"required,max=500"`
	Body                 string  `json:"body" validate:"required"`
	RegistrationPublicID *string `json:"registration_public_id,omitempty" validate:"omitempty,max=64"`
}

// AbstractResponse is an abstract as returned by the API
type AbstractResponse struct {
	UUID                 string  `json:"uuid"`
	PublicID             string  `json:"public_id"`
	EventUUID            string  `json:"event_uuid"`
	RegistrationPublicID *string `json:"registration_public_id,omitempty"`
	Title                string  `json:"title"`
	Status               string  `json:"status"`
	CreatedAt            string  `json:"created_at"`
}
