package dto

// SequenceStateResponse is a point-in-time view of one identifier counter
type SequenceStateResponse struct {
	EventUUID       string `json:"event_uuid"`
	Kind            string `json:"kind"`
	Namespace       string `json:"namespace"`
	Prefix          string `json:"prefix"`
	StartNumber     int64  `json:"start_number"`
	PadWidth        int    `json:"pad_width"`
	StoredValue     *int64 `json:"stored_value"`
	HighestObserved *int64 `json:"highest_observed"`
	Floor           int64  `json:"floor"`
	NextNumber      int64  `json:"next_number"`
	NextPublicID    string `json:"next_public_id"`
}

// ReconcileSequenceResponse reports an explicit counter heal
type ReconcileSequenceResponse struct {
	Message         string `json:"message"`
	Namespace       string `json:"namespace"`
	StoredBefore    *int64 `json:"stored_before"`
	HighestObserved *int64 `json:"highest_observed"`
	Floor           int64  `json:"floor"`
	Healed          bool   `json:"healed"`
}
