package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Layout field names the record is assembled from.
const (
	fieldPosNeg                   = "pos_neg"
	fieldEventYear                = "event_year"
	fieldEventMonth               = "event_month"
	fieldEventDay                 = "event_day"
	fieldPredictedTime            = "predicted_time_utc"
	fieldAsteroidNumber           = "asteroid_number"
	fieldAsteroidName             = "asteroid_name"
	fieldStarCatalog              = "star_catalog"
	fieldStarNumber               = "star_number"
	fieldObserver                 = "observer"
	fieldEmail                    = "email"
	fieldLocation                 = "location"
	fieldLatitude                 = "latitude"
	fieldLongitude                = "longitude"
	fieldDatum                    = "datum"
	fieldElevation                = "elevation_m"
	fieldTelescopeType            = "telescope_type"
	fieldAperture                 = "aperture_cm"
	fieldFocalLength              = "focal_length_cm"
	fieldTimingMethod             = "timing_method"
	fieldTimingDevice             = "timing_device"
	fieldSkyConditions            = "sky_conditions"
	fieldSeeing                   = "seeing"
	fieldSessionStart             = "session_start"
	fieldSessionStop              = "session_stop"
	fieldDisappearanceUncorrected = "disappearance_uncorrected"
	fieldDisappearanceCorrected   = "disappearance_corrected"
	fieldReappearanceUncorrected  = "reappearance_uncorrected"
	fieldReappearanceCorrected    = "reappearance_corrected"
	fieldDAccuracy68              = "d_accuracy_68"
	fieldDAccuracy95              = "d_accuracy_95"
	fieldDAccuracy997             = "d_accuracy_997"
	fieldRAccuracy68              = "r_accuracy_68"
	fieldRAccuracy95              = "r_accuracy_95"
	fieldRAccuracy997             = "r_accuracy_997"
	fieldMissDistance             = "miss_distance_km"
	fieldSecondaryStarVisible     = "secondary_star_visible"
	fieldYValue1                  = "y_value_1"
	fieldYValue2                  = "y_value_2"
)

// requiredFields lists every layout field the record needs, with its kind.
var requiredFields = map[string]FieldKind{
	fieldPosNeg:                   KindText,
	fieldEventYear:                KindInt,
	fieldEventMonth:               KindMonth,
	fieldEventDay:                 KindInt,
	fieldPredictedTime:            KindClock,
	fieldAsteroidNumber:           KindText,
	fieldAsteroidName:             KindText,
	fieldStarCatalog:              KindText,
	fieldStarNumber:               KindText,
	fieldObserver:                 KindText,
	fieldEmail:                    KindText,
	fieldLocation:                 KindText,
	fieldLatitude:                 KindCoordinate,
	fieldLongitude:                KindCoordinate,
	fieldDatum:                    KindText,
	fieldElevation:                KindFloat,
	fieldTelescopeType:            KindText,
	fieldAperture:                 KindFloat,
	fieldFocalLength:              KindFloat,
	fieldTimingMethod:             KindText,
	fieldTimingDevice:             KindText,
	fieldSkyConditions:            KindText,
	fieldSeeing:                   KindText,
	fieldSessionStart:             KindTime,
	fieldSessionStop:              KindTime,
	fieldDisappearanceUncorrected: KindTime,
	fieldDisappearanceCorrected:   KindTime,
	fieldReappearanceUncorrected:  KindTime,
	fieldReappearanceCorrected:    KindTime,
	fieldDAccuracy68:              KindFloat,
	fieldDAccuracy95:              KindFloat,
	fieldDAccuracy997:             KindFloat,
	fieldRAccuracy68:              KindFloat,
	fieldRAccuracy95:              KindFloat,
	fieldRAccuracy997:             KindFloat,
	fieldMissDistance:             KindFloat,
	fieldSecondaryStarVisible:     KindText,
	fieldYValue1:                  KindFloat,
	fieldYValue2:                  KindFloat,
}

// ObservationRecord is the normalized content of one report sheet. It is
// built once by the extractor and not modified afterwards.
type ObservationRecord struct {
	ID         string `json:"id"`
	SourceFile string `json:"source_file"`

	EventDate        string    `json:"event_date"` // YYYY-MM-DD
	AsteroidNumber   string    `json:"asteroid_number"`
	AsteroidName     string    `json:"asteroid_name"`
	StarCatalog      string    `json:"star_catalog"`
	StarNumber       string    `json:"star_number"`
	PredictedTimeUTC TimeOfDay `json:"predicted_time_utc"`

	// Coords is the normalized pair, e.g. "45.5083 N, 122.5000 W".
	Coords     string   `json:"coords"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Datum      string   `json:"datum"`
	ElevationM *float64 `json:"elevation_m"`

	PosNeg   string `json:"pos_neg"`
	Observer string `json:"observer"`
	Email    string `json:"email"`
	Location string `json:"location"`

	TelescopeType string   `json:"telescope_type"`
	ApertureCM    *float64 `json:"aperture_cm"`
	FocalLengthCM *float64 `json:"focal_length_cm"`
	TimingMethod  string   `json:"timing_method"`
	TimingDevice  string   `json:"timing_device"`
	SkyConditions string   `json:"sky_conditions"`
	Seeing        string   `json:"seeing"`

	SessionStart             *TimeOfDay `json:"session_start"`
	SessionStop              *TimeOfDay `json:"session_stop"`
	DisappearanceUncorrected *TimeOfDay `json:"disappearance_uncorrected"`
	DisappearanceCorrected   *TimeOfDay `json:"disappearance_corrected"`
	ReappearanceUncorrected  *TimeOfDay `json:"reappearance_uncorrected"`
	ReappearanceCorrected    *TimeOfDay `json:"reappearance_corrected"`

	DAccuracy68  *float64 `json:"d_accuracy_68"`
	DAccuracy95  *float64 `json:"d_accuracy_95"`
	DAccuracy997 *float64 `json:"d_accuracy_997"`
	RAccuracy68  *float64 `json:"r_accuracy_68"`
	RAccuracy95  *float64 `json:"r_accuracy_95"`
	RAccuracy997 *float64 `json:"r_accuracy_997"`

	MissDistanceKM       *float64 `json:"miss_distance_km"`
	SecondaryStarVisible string   `json:"secondary_star_visible"`
	YValue1              *float64 `json:"y_value_1"`
	YValue2              *float64 `json:"y_value_2"`
}

type column struct {
	name string
	get  func(*ObservationRecord) any
}

// columns is the fixed output column order.
var columns = []column{
	{"event_date", func(r *ObservationRecord) any { return r.EventDate }},
	{"asteroid_number", func(r *ObservationRecord) any { return r.AsteroidNumber }},
	{"asteroid_name", func(r *ObservationRecord) any { return r.AsteroidName }},
	{"star_catalog", func(r *ObservationRecord) any { return r.StarCatalog }},
	{"star_number", func(r *ObservationRecord) any { return r.StarNumber }},
	{"predicted_time_utc", func(r *ObservationRecord) any { return r.PredictedTimeUTC.String() }},
	{"coords", func(r *ObservationRecord) any { return r.Coords }},
	{"datum", func(r *ObservationRecord) any { return r.Datum }},
	{"elevation_m", func(r *ObservationRecord) any { return optFloat(r.ElevationM) }},
	{"pos_neg", func(r *ObservationRecord) any { return r.PosNeg }},
	{"observer", func(r *ObservationRecord) any { return r.Observer }},
	{"email", func(r *ObservationRecord) any { return r.Email }},
	{"location", func(r *ObservationRecord) any { return r.Location }},
	{"telescope_type", func(r *ObservationRecord) any { return r.TelescopeType }},
	{"aperture_cm", func(r *ObservationRecord) any { return optFloat(r.ApertureCM) }},
	{"focal_length_cm", func(r *ObservationRecord) any { return optFloat(r.FocalLengthCM) }},
	{"timing_method", func(r *ObservationRecord) any { return r.TimingMethod }},
	{"timing_device", func(r *ObservationRecord) any { return r.TimingDevice }},
	{"sky_conditions", func(r *ObservationRecord) any { return r.SkyConditions }},
	{"seeing", func(r *ObservationRecord) any { return r.Seeing }},
	{"session_start", func(r *ObservationRecord) any { return optTime(r.SessionStart) }},
	{"session_stop", func(r *ObservationRecord) any { return optTime(r.SessionStop) }},
	{"disappearance_uncorrected", func(r *ObservationRecord) any { return optTime(r.DisappearanceUncorrected) }},
	{"disappearance_corrected", func(r *ObservationRecord) any { return optTime(r.DisappearanceCorrected) }},
	{"reappearance_uncorrected", func(r *ObservationRecord) any { return optTime(r.ReappearanceUncorrected) }},
	{"reappearance_corrected", func(r *ObservationRecord) any { return optTime(r.ReappearanceCorrected) }},
	{"d_accuracy_68", func(r *ObservationRecord) any { return optFloat(r.DAccuracy68) }},
	{"d_accuracy_95", func(r *ObservationRecord) any { return optFloat(r.DAccuracy95) }},
	{"d_accuracy_997", func(r *ObservationRecord) any { return optFloat(r.DAccuracy997) }},
	{"r_accuracy_68", func(r *ObservationRecord) any { return optFloat(r.RAccuracy68) }},
	{"r_accuracy_95", func(r *ObservationRecord) any { return optFloat(r.RAccuracy95) }},
	{"r_accuracy_997", func(r *ObservationRecord) any { return optFloat(r.RAccuracy997) }},
	{"miss_distance_km", func(r *ObservationRecord) any { return optFloat(r.MissDistanceKM) }},
	{"secondary_star_visible", func(r *ObservationRecord) any { return r.SecondaryStarVisible }},
	{"y_value_1", func(r *ObservationRecord) any { return optFloat(r.YValue1) }},
	{"y_value_2", func(r *ObservationRecord) any { return optFloat(r.YValue2) }},
	{"source_file", func(r *ObservationRecord) any { return r.SourceFile }},
}

// Columns returns the output header in table order.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// Values returns the record's cells in Columns order. Absent optional values
// are nil; times are rendered as ISO-8601 strings.
func (r *ObservationRecord) Values() []any {
	vals := make([]any, len(columns))
	for i, c := range columns {
		vals[i] = c.get(r)
	}
	return vals
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optTime(t *TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

// recordID derives a deterministic identifier from the record's identifying
// fields, so re-running a batch over the same files yields the same IDs.
func recordID(source, eventDate, asteroid, observer, coords string) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s", source, eventDate, asteroid, observer, coords)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}
