package logger

import (
	"strings"

	"go.uber.org/zap"
)

const maskToken = "****"

// MaskIdentifier redacts a patient identifier, keeping its prefix up to the
// last "-" or "_" and the last four characters so log lines can still be
// matched against the queue store.
func MaskIdentifier(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// Patient returns the masked patient_id field.
func Patient(patientID string) zap.Field {
	return zap.String("patient_id", MaskIdentifier(patientID))
}

func splitPrefix(value string) (string, string) {
	last := strings.LastIndexAny(value, "-_")
	if last == -1 || last == len(value)-1 {
		return "", value
	}
	return value[:last+1], value[last+1:]
}
