package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request handling constants
const (
	// RequestTimeout bounds a single API request including identifier allocation
	RequestTimeout = 30 * time.Second

	// ImportRequestTimeout bounds bulk registration imports
	ImportRequestTimeout = 5 * time.Minute

	// AllocationRetryAfterSeconds is advertised to clients when identifier allocation is unavailable
	AllocationRetryAfterSeconds = 2
)

// Pagination constants
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Import constants
const (
	// MaxImportRows caps the number of data rows accepted in one import file
	MaxImportRows = 10000

	// MaxImportFileSize caps the size of an uploaded import file (10 MB)
	MaxImportFileSize = 10 * 1024 * 1024
)
