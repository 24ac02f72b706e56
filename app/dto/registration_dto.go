package dto

// CreateRegistrationRequest registers one attendee. The public ID is always allocated by the server.
type CreateRegistrationRequest struct {
	EventUUID string  `json:"-"`
	FirstName string  `json:"first_name" validate:"required,max=255"`
	LastName  string  `json:"last_name" validate:"required,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Mobile    *string `json:"mobile,omitempty" validate:"omitempty,max=20"`
	Category  *string `json:"category,omitempty" validate:"omitempty,max=64"`
}

// RegistrationResponse is a registration as returned by the API
type RegistrationResponse struct {
	UUID      string  `json:"uuid"`
	PublicID  string  `json:"public_id"`
	EventUUID string  `json:"event_uuid"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Mobile    *string `json:"mobile,omitempty"`
	Category  *string `json:"category,omitempty"`
	Status    string  `json:"status"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at"`
}

// ListRegistrationsRequest pages through an event's registrations in public ID order
type ListRegistrationsRequest struct {
	EventUUID string `json:"-"`
	Page      int    `json:"page" query:"page"`
	Limit     int    `json:"limit" query:"limit"`
}

// ListRegistrationsResponse represents a paginated list of registrations
type ListRegistrationsResponse struct {
	Message    string                 `json:"message"`
	Items      []RegistrationResponse `json:"items"`
	Pagination PaginationInfo         `json:"pagination"`
}

// ImportRegistrationsRequest carries an uploaded CSV or XLSX file.
// Required columns: first_name, last_name, email. Optional: mobile, category, public_id.
type ImportRegistrationsRequest struct {
	EventUUID string `json:"-"`
	FileName  string `json:"-"`
	Content   []byte `json:"-"`
}

// ImportRowError reports a rejected data row; Row is 1-based and counts the header
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRegistrationsResponse summarizes a bulk import
type ImportRegistrationsResponse struct {
	Message       string           `json:"message"`
	TotalRows     int              `json:"total_rows"`
	Imported      int              `json:"imported"`
	Allocated     int              `json:"allocated"`
	Preassigned   int              `json:"preassigned"`
	FirstPublicID string           `json:"first_public_id,omitempty"`
	LastPublicID  string           `json:"last_public_id,omitempty"`
	Errors        []ImportRowError `json:"errors,omitempty"`
}

// ExportRegistrationsResponse is a rendered workbook
type ExportRegistrationsResponse struct {
	FileName string
	Content  []byte
}
