package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleTime(t *testing.T) {
	tests := []struct {
		name    string
		hour    int
		minute  int
		seconds float64
		want    TimeOfDay
	}{
		{"microseconds", 14, 30, 45.123456, TimeOfDay{14, 30, 45, 123456}},
		{"truncates, not rounds", 14, 30, 45.1239999, TimeOfDay{14, 30, 45, 123999}},
		{"half second", 3, 41, 12.5, TimeOfDay{3, 41, 12, 500000}},
		{"sub-microsecond dropped", 0, 0, 0.0000009, TimeOfDay{0, 0, 0, 0}},
		{"just below a minute", 23, 59, 59.999999, TimeOfDay{23, 59, 59, 999999}},
		{"whole seconds", 9, 5, 7, TimeOfDay{9, 5, 7, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AssembleTime(tt.hour, tt.minute, tt.seconds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssembleTime_OutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		hour    int
		minute  int
		seconds float64
	}{
		{"hour 24", 24, 0, 0},
		{"negative hour", -1, 0, 0},
		{"minute 60", 12, 60, 0},
		{"seconds 60", 12, 0, 60},
		{"negative seconds", 12, 0, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleTime(tt.hour, tt.minute, tt.seconds)
			assert.ErrorIs(t, err, ErrTimeOutOfRange)
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "14:30:45.123456", TimeOfDay{14, 30, 45, 123456}.String())
	assert.Equal(t, "03:41:17", TimeOfDay{3, 41, 17, 0}.String())
	assert.Equal(t, "00:00:00.000500", TimeOfDay{0, 0, 0, 500}.String())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("03:41:12.467")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{3, 41, 12, 467000}, got)

	got, err = ParseTimeOfDay("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{23, 59, 59, 0}, got)

	for _, bad := range []string{"", "noon", "25:00:00", "12:00:00.", "12:00:00.1234567"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	in := struct {
		At  TimeOfDay  `json:"at"`
		Opt *TimeOfDay `json:"opt"`
	}{At: TimeOfDay{14, 30, 45, 123456}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"14:30:45.123456","opt":null}`, string(data))

	var out struct {
		At TimeOfDay `json:"at"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.At, out.At)
}
