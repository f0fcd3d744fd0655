package inbound

import (
	"net/http"

	"github.com/K-Santhoshkumar/GS/internal/pkg/router"
)

// PublicRoutes lists the endpoints reachable without a bearer token.
var PublicRoutes = map[string][]string{
	http.MethodPost: {
		"/api/v1/otp/generate",
		"/api/v1/otp/verify",
	},
}

// RegisterHTTPEndpoint mounts the otp routes. exposeCode echoes the plaintext
// code in generate responses and must only be true in development.
func RegisterHTTPEndpoint(r *router.Router, uc uc, exposeCode bool) {
	end := &HTTPEndpoint{uc: uc, exposeCode: exposeCode}

	r.POST("/api/v1/otp/generate", end.Generate)
	r.POST("/api/v1/otp/verify", end.Verify)

	// Operators (need authenticated & authorization)
	r.POST("/api/v1/otp/invalidate", end.Invalidate)
	r.POST("/api/v1/otp/transactions/:id/deliver", end.Deliver)
	r.GET("/api/v1/otp/transactions", end.ListRecent)
}
