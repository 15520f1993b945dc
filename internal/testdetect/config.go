package testdetect

import "time"

// Config holds configuration for the detect smoke test
type Config struct {
	BaseURL     string        // Base URL of the service
	NumRequests int           // Number of detect requests to send
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated payloads
	LogFile     string        // Log file for test output
	SkipVerify  bool          // Skip response contract verification
	Verbose     bool          // Enable verbose logging
}

// Payload is one synthetic screenshot submission
type Payload struct {
	ID         string `json:"id"`
	Screenshot string `json:"screenshot"`
}

// DetectRequest is the request body of the detect endpoint
type DetectRequest struct {
	Screenshot string `json:"screenshot"`
}

// Detection mirrors one entry of a detect response
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        []int   `json:"box"`
}

// DetectResponse is the success body of the detect endpoint
type DetectResponse struct {
	Detections []Detection `json:"detections"`
}

// ErrorResponse is the failure body of the detect endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

// Outcome records one submitted request for verification
type Outcome struct {
	ID       string
	Status   int
	Response DetectResponse
	Latency  time.Duration
	Err      error
}

// Stats holds test statistics
type Stats struct {
	RequestsGenerated  int
	RequestsSubmitted  int
	RequestsSuccessful int
	RequestsFailed     int
	ContractViolations int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
