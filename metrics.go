package authcore

import "github.com/mkarel/authcore/internal/metrics"

// MetricID indexes one engine counter.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricRegisterSuccess       = metrics.MetricRegisterSuccess
	MetricRegisterDuplicate     = metrics.MetricRegisterDuplicate
	MetricLoginSuccess          = metrics.MetricLoginSuccess
	MetricLoginFailure          = metrics.MetricLoginFailure
	MetricLoginLocked           = metrics.MetricLoginLocked
	MetricLoginUnverified       = metrics.MetricLoginUnverified
	MetricRefreshSuccess        = metrics.MetricRefreshSuccess
	MetricRefreshUnauthorized   = metrics.MetricRefreshUnauthorized
	MetricRefreshReplayBlocked  = metrics.MetricRefreshReplayBlocked
	MetricLogout                = metrics.MetricLogout
	MetricLogoutAll             = metrics.MetricLogoutAll
	MetricVerifySuccess         = metrics.MetricVerifySuccess
	MetricVerifyFailure         = metrics.MetricVerifyFailure
	MetricSocialLoginSuccess    = metrics.MetricSocialLoginSuccess
	MetricSocialConsentRequired = metrics.MetricSocialConsentRequired
	MetricSessionCreated        = metrics.MetricSessionCreated
)
