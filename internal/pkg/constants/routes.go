package constants

// Static route constants
const (
	ReceiptsRoute = "/uploads/receipts"
	MetricsRoute  = "/metrics"
	HealthRoute   = "/health"
)
