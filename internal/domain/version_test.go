package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormVersion(t *testing.T) {
	require.NoError(t, ValidateFormVersion("V5.6.11"))

	for _, bad := range []string{"V5.6.10", "V5.6.12", "", "v5.6.11", " V5.6.11"} {
		t.Run(bad, func(t *testing.T) {
			err := ValidateFormVersion(bad)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedVersion)

			var verr *VersionError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, bad, verr.Found)
			assert.Contains(t, err.Error(), SupportedFormVersion)
		})
	}
}
