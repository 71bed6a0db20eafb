package authcore

import (
	"io"

	"github.com/mkarel/authcore/internal/audit"
)

// Audit surface, re-exported so adapters outside this module can
// implement sinks and consume events.

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditRegister    = audit.TypeRegister
	AuditLogin       = audit.TypeLogin
	AuditRefresh     = audit.TypeRefresh
	AuditLogout      = audit.TypeLogout
	AuditVerifyEmail = audit.TypeVerifyEmail
	AuditSocialLogin = audit.TypeSocialLogin
)

// NewChannelAuditSink returns a sink that forwards events into a
// buffered channel readable via Events().
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink returns a sink writing one JSON object per line.
func NewJSONAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
