package healthconnect

import (
	"context"
	"time"
)

// Client is the Health Connect SDK surface the provider consumes
type Client interface {
	// Initialize reports whether the SDK is installed and usable
	Initialize(ctx context.Context) (bool, error)
	// RequestPermission shows the system permission sheet once
	RequestPermission(ctx context.Context, permissions []Permission) error
	ReadRecords(ctx context.Context, recordType RecordType, opts ReadRecordsOptions) (*ReadRecordsResult, error)
}

// RecordType names a Health Connect record type
type RecordType string

const (
	RecordSteps                RecordType = "Steps"
	RecordActiveCaloriesBurned RecordType = "ActiveCaloriesBurned"
	RecordDistance             RecordType = "Distance"
	RecordBloodGlucose         RecordType = "BloodGlucose"
)

// AccessType is read or write
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// Permission is one access grant on one record type
type Permission struct {
	AccessType AccessType `json:"accessType"`
	RecordType RecordType `json:"recordType"`
}

// TimeRangeFilter restricts a read to a time window
type TimeRangeFilter struct {
	Operator  string `json:"operator"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ReadRecordsOptions are the options of a ReadRecords call
type ReadRecordsOptions struct {
	TimeRangeFilter TimeRangeFilter `json:"timeRangeFilter"`
}

// Between builds the "between" filter Health Connect expects
func Between(start, end time.Time) ReadRecordsOptions {
	return ReadRecordsOptions{
		TimeRangeFilter: TimeRangeFilter{
			Operator:  "between",
			StartTime: start.UTC().Format(time.RFC3339Nano),
			EndTime:   end.UTC().Format(time.RFC3339Nano),
		},
	}
}

// ReadRecordsResult is the response of a ReadRecords call
type ReadRecordsResult struct {
	Records []Record `json:"records"`
}

// Record is the union of the record shapes the provider reads.
// Only the fields of the requested record type are populated.
type Record struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	// Time is set on instantaneous records such as BloodGlucose
	Time *time.Time `json:"time,omitempty"`

	Count    *float64  `json:"count,omitempty"`
	Energy   *Energy   `json:"energy,omitempty"`
	Distance *Length   `json:"distance,omitempty"`
	Level    *Glucose  `json:"level,omitempty"`
	Value    *float64  `json:"value,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Energy is a Health Connect energy value
type Energy struct {
	InKilocalories *float64 `json:"inKilocalories,omitempty"`
	InCalories     *float64 `json:"inCalories,omitempty"`
}

// Length is a Health Connect length value
type Length struct {
	InMeters     *float64 `json:"inMeters,omitempty"`
	InKilometers *float64 `json:"inKilometers,omitempty"`
}

// Glucose is a Health Connect blood glucose level
type Glucose struct {
	InMilligramsPerDeciliter *float64 `json:"inMilligramsPerDeciliter,omitempty"`
	InMillimolesPerLiter     *float64 `json:"inMillimolesPerLiter,omitempty"`
}

// Metadata identifies a record and the app that wrote it
type Metadata struct {
	ID         string      `json:"id,omitempty"`
	DataOrigin string      `json:"dataOrigin,omitempty"`
	Device     *DeviceInfo `json:"device,omitempty"`
}

// DeviceInfo describes the device a record came from
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Kilocalories returns the record's energy in kcal
func (r Record) Kilocalories() float64 {
	if r.Energy == nil {
		return 0
	}
	if r.Energy.InKilocalories != nil {
		return *r.Energy.InKilocalories
	}
	if r.Energy.InCalories != nil {
		return *r.Energy.InCalories / 1000
	}
	return 0
}

// Meters returns the record's distance in meters
func (r Record) Meters() float64 {
	if r.Distance == nil {
		return 0
	}
	if r.Distance.InMeters != nil {
		return *r.Distance.InMeters
	}
	if r.Distance.InKilometers != nil {
		return *r.Distance.InKilometers * 1000
	}
	return 0
}

// StepCount returns the record's step count
func (r Record) StepCount() float64 {
	if r.Count == nil {
		return 0
	}
	return *r.Count
}
