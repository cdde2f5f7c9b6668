// Package config loads the risk engine's heuristic thresholds, following
// the same getEnv-with-defaults idiom as internal/platform/config.
package config

import "paysaga/internal/platform/config"

type Thresholds struct {
	// AmountReviewCents: payments at or above this amount enter REVIEW.
	AmountReviewCents int64
	// FailureRateDenyCount: customers with at least this many recent
	// failures (within FailureWindowSeconds) are denied outright.
	FailureRateDenyCount int
	// VelocityMinuteLimit/VelocityHourLimit: payment attempts per customer
	// within the trailing 1-minute/1-hour window above this limit enter
	// REVIEW.
	VelocityMinuteLimit int
	VelocityHourLimit   int
}

func LoadThresholds() Thresholds {
	return Thresholds{
		AmountReviewCents:    int64(config.GetEnvAsInt("RISK_AMOUNT_REVIEW_THRESHOLD_CENTS", 100000)),
		FailureRateDenyCount: config.GetEnvAsInt("RISK_FAILURE_RATE_DENY_COUNT", 5),
		VelocityMinuteLimit:  config.GetEnvAsInt("RISK_VELOCITY_MINUTE_LIMIT", 10),
		VelocityHourLimit:    config.GetEnvAsInt("RISK_VELOCITY_HOUR_LIMIT", 50),
	}
}
