package model

import "strings"

// GlucoseUnit is the unit a glucose reading was recorded in
type GlucoseUnit string

const (
	GlucoseUnitMgdl  GlucoseUnit = "mg/dL"
	GlucoseUnitMmolL GlucoseUnit = "mmol/L"
)

// MgdlPerMmolL is the fixed conversion factor between the two glucose units
const MgdlPerMmolL = 18

// GlucoseSample represents one point-in-time blood glucose reading
type GlucoseSample struct {
	ID            string      `json:"id"`
	ValueMgdl     float64     `json:"value_mgdl"`
	OriginalValue float64     `json:"original_value"`
	OriginalUnit  GlucoseUnit `json:"original_unit"`
	MeasuredAtISO string      `json:"measured_at_iso"`
	Source        *string     `json:"source,omitempty"`
}

// ToMgdl converts value to mg/dL
func ToMgdl(value float64, unit GlucoseUnit) float64 {
	if unit == GlucoseUnitMmolL {
		return value * MgdlPerMmolL
	}
	return value
}

// ParseGlucoseUnit maps a vendor unit string onto a GlucoseUnit.
// HealthKit reports mmol/L as "mmol<180.15588000005408>/L", so anything
// starting with "mmol" counts; unrecognized strings are mg/dL.
func ParseGlucoseUnit(unit string) GlucoseUnit {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(unit)), "mmol") {
		return GlucoseUnitMmolL
	}
	return GlucoseUnitMgdl
}
