package model

// Metric identifies one tracked health quantity
type Metric string

const (
	MetricSteps                Metric = "steps"
	MetricActiveCaloriesBurned Metric = "activeCaloriesBurned"
	MetricDistance             Metric = "distance"
	MetricBloodGlucose         Metric = "bloodGlucose"
)

// Metrics lists every supported metric in canonical order
var Metrics = []Metric{
	MetricSteps,
	MetricActiveCaloriesBurned,
	MetricDistance,
	MetricBloodGlucose,
}

// IsValid reports whether m is one of the supported metrics
func (m Metric) IsValid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// MetricPermission holds the requested access for one metric
type MetricPermission struct {
	Read  bool `json:"read,omitempty"`
	Write bool `json:"write,omitempty"`
}

// PermissionRequest holds the requested access per metric
type PermissionRequest map[Metric]MetricPermission

// Requested returns the metrics with read or write access set, in canonical order
func (r PermissionRequest) Requested() []Metric {
	var metrics []Metric
	for _, m := range Metrics {
		if p, ok := r[m]; ok && (p.Read || p.Write) {
			metrics = append(metrics, m)
		}
	}
	return metrics
}

// PermissionState is the authorization state of a metric
type PermissionState string

const (
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
	PermissionNotAvailable PermissionState = "not_available"
	PermissionUnknown      PermissionState = "unknown"
)

// PermissionResponse holds the aggregate and per-metric permission state
type PermissionResponse struct {
	Status    PermissionState            `json:"status"`
	PerMetric map[Metric]PermissionState `json:"per_metric"`
}

// AggregatePermissionStatus folds per-metric states into one.
// not_available beats denied beats everything; only an all-granted set is granted.
func AggregatePermissionStatus(perMetric map[Metric]PermissionState) PermissionState {
	if len(perMetric) == 0 {
		return PermissionUnknown
	}

	allGranted := true
	denied := false
	for _, state := range perMetric {
		switch state {
		case PermissionNotAvailable:
			return PermissionNotAvailable
		case PermissionDenied:
			denied = true
		}
		if state != PermissionGranted {
			allGranted = false
		}
	}

	if denied {
		return PermissionDenied
	}
	if allGranted {
		return PermissionGranted
	}
	return PermissionUnknown
}
