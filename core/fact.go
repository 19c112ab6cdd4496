package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	FactTypeIncomingCall = "incoming_call"
	// FactTypeCallLegacy is the literal older transports still send.
	FactTypeCallLegacy = "call"

	factFieldType       = "type"
	factFieldCallerKey  = "caller_key"
	factFieldCallID     = "call_id"
	factFieldCallerName = "caller_name"
	factFieldServerTs   = "server_ts_ms"
	factFieldNative     = "native_telecom"
)

// ParseFact normalizes a raw transport payload into an IncomingCallFact.
// A payload with an unrecognized type or a missing caller key is not a call
// fact; ok is false and the payload must be ignored without producing an
// admission decision. Values arrive as strings or numbers depending on the
// transport, so every field is coerced.
func ParseFact(payload map[string]any) (IncomingCallFact, bool) {
	if len(payload) == 0 {
		return IncomingCallFact{}, false
	}
	factType := stringField(payload, factFieldType)
	if factType != FactTypeIncomingCall && factType != FactTypeCallLegacy {
		return IncomingCallFact{}, false
	}
	callerKey := stringField(payload, factFieldCallerKey)
	if callerKey == "" {
		return IncomingCallFact{}, false
	}

	fact := IncomingCallFact{
		CallID:          stringField(payload, factFieldCallID),
		CallerKey:       callerKey,
		CallerName:      stringField(payload, factFieldCallerName),
		NativeSignaling: boolField(payload, factFieldNative),
	}
	if ts, ok := int64Field(payload, factFieldServerTs); ok {
		fact.ServerTsMs = &ts
	}
	return fact, true
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func int64Field(payload map[string]any, key string) (int64, bool) {
	value, ok := payload[key]
	if !ok || value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case float64:
		return int64(typed), true
	default:
		parsed, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(value)), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
}

func boolField(payload map[string]any, key string) bool {
	switch stringField(payload, key) {
	case "1", "true":
		return true
	default:
		return false
	}
}
