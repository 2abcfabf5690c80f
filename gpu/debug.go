package gpu

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugSource is the component that emitted a debug message.
type DebugSource int

const (
	SourceUnknown DebugSource = iota
	SourceAPI
	SourceWindowSystem
	SourceShaderCompiler
	SourceThirdParty
	SourceApplication
	SourceOther
)

var sourceNames = [...]string{"unknown", "api", "window system", "shader compiler", "third party", "application", "other"}

func (s DebugSource) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return sourceNames[SourceUnknown]
	}
	return sourceNames[s]
}

// DebugType is the category of a debug message.
type DebugType int

const (
	TypeUnknown DebugType = iota
	TypeError
	TypeDeprecatedBehavior
	TypeUndefinedBehavior
	TypePortability
	TypePerformance
	TypeMarker
	TypePushGroup
	TypePopGroup
	TypeOther
)

var typeNames = [...]string{
	"unknown", "error", "deprecated behavior", "undefined behavior", "portability",
	"performance", "marker", "push group", "pop group", "other",
}

func (t DebugType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[TypeUnknown]
	}
	return typeNames[t]
}

// DebugSeverity orders messages from informational to fatal.
type DebugSeverity int

const (
	SeverityUnknown DebugSeverity = iota
	SeverityNotification
	SeverityLow
	SeverityMedium
	SeverityHigh
)

var severityNames = [...]string{"unknown", "notification", "low", "medium", "high"}

func (s DebugSeverity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

// DebugMessage is one driver diagnostic. Values the driver reports that do
// not map to a known enum arrive as the Unknown variant of each field.
type DebugMessage struct {
	Source   DebugSource
	Type     DebugType
	Severity DebugSeverity
	ID       uint32
	Text     string
}

// Fatal reports messages that indicate broken rendering rather than advice.
func (m DebugMessage) Fatal() bool {
	return m.Type == TypeError || m.Type == TypeUndefinedBehavior
}

// Level is the log level the message is recorded at.
func (m DebugMessage) Level() zapcore.Level {
	if m.Fatal() {
		return zapcore.ErrorLevel
	}
	switch m.Severity {
	case SeverityHigh:
		return zapcore.ErrorLevel
	case SeverityMedium:
		return zapcore.InfoLevel
	case SeverityLow, SeverityNotification:
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// LogDebugMessage records m on log at m.Level().
func LogDebugMessage(log *zap.Logger, m DebugMessage) {
	if ce := log.Check(m.Level(), m.Text); ce != nil {
		ce.Write(
			zap.Stringer("source", m.Source),
			zap.Stringer("type", m.Type),
			zap.Stringer("severity", m.Severity),
			zap.Uint32("id", m.ID),
			zap.Bool("fatal", m.Fatal()),
		)
	}
}
