package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Scopes granted to calling services
const (
	// ScopeTriggerAnalysis allows a caller to report finished uploads
	ScopeTriggerAnalysis = "recordings:trigger"
	// ScopeReadReports allows a caller to read recording status and reports
	ScopeReadReports = "recordings:read"
)

// Claims represents the claims carried by a service-to-service token
type Claims struct {
	Service string `json:"service"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}
