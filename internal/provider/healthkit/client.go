package healthkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Client is the HealthKit surface the provider consumes
type Client interface {
	IsHealthDataAvailable(ctx context.Context) (bool, error)
	// RequestAuthorization shows the HealthKit authorization sheet once
	RequestAuthorization(ctx context.Context, req AuthorizationRequest) error
	QueryQuantitySamples(ctx context.Context, identifier TypeIdentifier, opts QueryOptions) ([]QuantitySample, error)
}

// TypeIdentifier names a HealthKit quantity type
type TypeIdentifier string

const (
	StepCount              TypeIdentifier = "HKQuantityTypeIdentifierStepCount"
	ActiveEnergyBurned     TypeIdentifier = "HKQuantityTypeIdentifierActiveEnergyBurned"
	DistanceWalkingRunning TypeIdentifier = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	BloodGlucose           TypeIdentifier = "HKQuantityTypeIdentifierBloodGlucose"
)

// AuthorizationRequest lists the types to read and to share (write)
type AuthorizationRequest struct {
	ToRead  []TypeIdentifier `json:"toRead"`
	ToShare []TypeIdentifier `json:"toShare"`
}

// DateFilter restricts a query to samples within a date window
type DateFilter struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// QueryFilter wraps the date filter the way HealthKit expects it
type QueryFilter struct {
	Date DateFilter `json:"date"`
}

// QueryOptions are the options of a QueryQuantitySamples call. Limit 0 is unbounded.
type QueryOptions struct {
	Limit  int         `json:"limit"`
	Filter QueryFilter `json:"filter"`
}

// Within builds unbounded query options over [start, end]
func Within(start, end time.Time) QueryOptions {
	return QueryOptions{
		Limit:  0,
		Filter: QueryFilter{Date: DateFilter{StartDate: start, EndDate: end}},
	}
}

// QuantitySample is one HealthKit quantity sample
type QuantitySample struct {
	UUID       string     `json:"uuid,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Quantity   *Quantity  `json:"quantity,omitempty"`
	Value      *float64   `json:"value,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	SourceName string     `json:"sourceName,omitempty"`
}

// Quantity is either {"value": n, "unit": "..."} or a bare number
type Quantity struct {
	Value float64
	Unit  string
}

// UnmarshalJSON accepts both quantity encodings
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value float64 `json:"value"`
			Unit  string  `json:"unit"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("parsing quantity object: %w", err)
		}
		q.Value, q.Unit = obj.Value, obj.Unit
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parsing quantity number: %w", err)
	}
	q.Value, q.Unit = n, ""
	return nil
}

// MarshalJSON always writes the object form
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit,omitempty"`
	}{q.Value, q.Unit})
}

// Amount returns the sample's numeric value: quantity first, then the top-level value
func (s QuantitySample) Amount() float64 {
	if s.Quantity != nil {
		return s.Quantity.Value
	}
	if s.Value != nil {
		return *s.Value
	}
	return 0
}

// UnitString returns the unit carried by the quantity or the sample
func (s QuantitySample) UnitString() string {
	if s.Quantity != nil && s.Quantity.Unit != "" {
		return s.Quantity.Unit
	}
	return s.Unit
}
