package timeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-dashboard/backend/pkg/models"
)

func TestParseFlowCode(t *testing.T) {
	tests := []struct {
		in   string
		want FlowCode
	}{
		{"CR4", FlowCode{Prefix: "CR", Step: 4}},
		{"cr4", FlowCode{Prefix: "CR", Step: 4}},
		{" SR0 ", FlowCode{Prefix: "SR", Step: 0}},
		{"V12", FlowCode{Prefix: "V", Step: 12}},
		{"CR04", FlowCode{Prefix: "CR", Step: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFlowCode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlowCode_Malformed(t *testing.T) {
	for _, in := range []string{"", "4", "CR", "C-4", "CR4x", "4CR", "CR 4", "CR99999999999999999999"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFlowCode(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFlowCode), "got %v", err)
		})
	}
}

func TestFlowCode_RoundTrip(t *testing.T) {
	for _, in := range []string{"SR0", "CR4", "V1", "ABC10"} {
		f, err := ParseFlowCode(in)
		require.NoError(t, err)
		assert.Equal(t, in, f.String())
	}
	assert.Equal(t, "CR3", Format("cr", 3))
}

func TestPrefixOf(t *testing.T) {
	assert.Equal(t, "CR", PrefixOf(models.Stage{Name: "Case Run", Code: "cr"}))
	assert.Equal(t, "V", PrefixOf(models.Stage{Name: "venting"}))
	assert.Equal(t, "V", PrefixOf(models.Stage{Name: "Venting", Code: "  "}))
	assert.Equal(t, "", PrefixOf(models.Stage{}))
}
