package medical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const maxAge = 150

// ParseReport decodes and validates a report payload. Numeric fields may
// arrive as JSON numbers or numeric strings; anything else is rejected.
func ParseReport(data []byte) (*MedicalReport, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidReport)
	}
	var report MedicalReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &report, nil
}

// ParseHospital decodes and validates a hospital recommendation payload.
func ParseHospital(data []byte) (*HospitalRecommendation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidHospital)
	}
	var rec HospitalRecommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHospital, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate rejects reports that carry no usable content.
func (r MedicalReport) Validate() error {
	if r.BasicInfo.Age < 0 || r.BasicInfo.Age > maxAge {
		return fmt.Errorf("%w: age %d out of range", ErrInvalidReport, r.BasicInfo.Age)
	}
	for i, s := range r.Prompts.Symptoms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: symptom %d is blank", ErrInvalidReport, i)
		}
	}
	d := r.Diagnosis
	if strings.TrimSpace(d.PossibleDisease) == "" &&
		strings.TrimSpace(d.Department) == "" &&
		strings.TrimSpace(d.TreatmentOptions) == "" &&
		len(r.Prompts.Symptoms) == 0 {
		return fmt.Errorf("%w: report has neither diagnosis nor symptoms", ErrInvalidReport)
	}
	return nil
}

// Department returns the trimmed recommended department, which may be empty.
func (r MedicalReport) Department() string {
	return strings.TrimSpace(r.Diagnosis.Department)
}

func (r MedicalReport) clone() MedicalReport {
	out := r
	if r.Prompts.Symptoms != nil {
		out.Prompts.Symptoms = append([]string(nil), r.Prompts.Symptoms...)
	}
	return out
}

// Validate rejects recommendations without a name or with a bad distance.
func (h HospitalRecommendation) Validate() error {
	if strings.TrimSpace(h.HospitalName) == "" {
		return fmt.Errorf("%w: hospital name is required", ErrInvalidHospital)
	}
	if math.IsNaN(h.Distance) || math.IsInf(h.Distance, 0) || h.Distance < 0 {
		return fmt.Errorf("%w: distance %v must be a non-negative number", ErrInvalidHospital, h.Distance)
	}
	return nil
}

// UnmarshalJSON accepts the age as a number, a numeric string, or "".
func (b *BasicInfo) UnmarshalJSON(data []byte) error {
	type alias BasicInfo
	var raw struct {
		alias
		Age json.RawMessage `json:"age"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	age, err := flexNumber(raw.Age)
	if err != nil {
		return fmt.Errorf("age: %w", err)
	}
	*b = BasicInfo(raw.alias)
	b.Age = int(age)
	return nil
}

// UnmarshalJSON accepts the distance as a number or numeric string.
func (h *HospitalRecommendation) UnmarshalJSON(data []byte) error {
	type alias HospitalRecommendation
	var raw struct {
		alias
		Distance json.RawMessage `json:"distance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dist, err := flexNumber(raw.Distance)
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	*h = HospitalRecommendation(raw.alias)
	h.Distance = dist
	return nil
}

func flexNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
