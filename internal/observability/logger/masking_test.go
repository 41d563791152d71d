package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskIdentifier(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"  ":             "",
		"p-1":            "p-****",
		"MRN-0012345678": "MRN-****5678",
		"0012345678":     "****5678",
		"mrn_":           "****",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskIdentifier(in), in)
	}
}

func TestPatientField(t *testing.T) {
	f := Patient("MRN-0012345678")
	assert.Equal(t, "patient_id", f.Key)
	assert.Equal(t, "MRN-****5678", f.String)
}
