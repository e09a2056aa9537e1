package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Code shape
const (
	CodeLength      = 8
	MaxPrefixLength = 4
)

// Rate limits for the public redemption endpoint and admin generation
const (
	ValidateLimitPerIP     = 10
	ValidateLimitWindow    = 1 * time.Minute
	GenerateLimitPerCaller = 30
	GenerateLimitWindow    = 5 * time.Minute
)

// Admin listing bounds
const (
	DefaultLogListLimit = 50
	MaxLogListLimit     = 500
)
