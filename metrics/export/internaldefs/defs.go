package internaldefs

import (
	authcore "github.com/tidelock/authcore"
)

// CounterDef binds one engine counter to its exported metric name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported metric name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter both exporters publish. Both
// exporters iterate this slice so metric names never diverge.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionCreateFailure, Name: "authcore_session_create_failure_total", Help: "Failed session creations."},
	{ID: authcore.MetricVerifySuccess, Name: "authcore_verify_success_total", Help: "Successful token verifications."},
	{ID: authcore.MetricVerifyDenied, Name: "authcore_verify_denied_total", Help: "Denied token verifications."},
	{ID: authcore.MetricVerifyUnavailable, Name: "authcore_verify_unavailable_total", Help: "Verifications denied because the revocation ledger was unreachable."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authcore.MetricFamilyRevoked, Name: "authcore_family_revoked_total", Help: "Whole-family revocations."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logout operations."},
	{ID: authcore.MetricPermissionAllowed, Name: "authcore_permission_allowed_total", Help: "Permission checks that granted."},
	{ID: authcore.MetricPermissionDenied, Name: "authcore_permission_denied_total", Help: "Permission checks that denied."},
	{ID: authcore.MetricKeyRotated, Name: "authcore_key_rotated_total", Help: "Signing key rotations."},
}

// HistogramDefs lists every histogram both exporters publish.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricVerifyLatency, Name: "authcore_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds are the upper bucket boundaries in seconds, matching
// the engine's fixed bucket layout.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues are the finite boundaries as floats for
// exporters that take numeric bucket keys. +Inf is implicit.
var HistogramBoundValues = []float64{
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
}

// HistogramBoundSuffix holds label-safe spellings of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a snapshot's bucket slice into the fixed
// 8-bucket array, zero-padding short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative
// form Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
