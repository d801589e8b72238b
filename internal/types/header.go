package types

// HTTP headers used by the REST surface
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	HeaderCronSecret    = "X-Cron-Secret"
)
