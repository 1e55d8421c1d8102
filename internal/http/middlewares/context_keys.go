package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxIdentity  = "auth.identity"
)
