package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

// Hospital is a directory entry.
type Hospital struct {
	Name        string
	Address     string
	Contact     string
	Latitude    float64
	Longitude   float64
	Departments []string
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// ParseCoordinates reads "lat,lon".
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("%w: coordinates must be \"lat,lon\"", ErrInvalidInput)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrInvalidInput, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrInvalidInput, parts[1])
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

// DefaultHospitals is the built-in Hong Kong directory.
var DefaultHospitals = []Hospital{
	{
		Name:      "United Christian Hospital",
		Address:   "130 Hip Wo Street, Kwun Tong, Kowloon",
		Contact:   "2379 9611",
		Latitude:  22.3226,
		Longitude: 114.2276,
		Departments: []string{DepartmentEmergency, DepartmentInternal, DepartmentGastro, DepartmentOrthopaedic,
			DepartmentPaediatrics, DepartmentObstetrics, DepartmentPsychiatry, DepartmentGeneral},
	},
	{
		Name:      "Queen Elizabeth Hospital",
		Address:   "30 Gascoigne Road, King's Park, Kowloon",
		Contact:   "3506 8888",
		Latitude:  22.3091,
		Longitude: 114.1747,
		Departments: []string{DepartmentEmergency, DepartmentInternal, DepartmentNeurology, DepartmentENT,
			DepartmentDermatology, DepartmentOrthopaedic, DepartmentOphthalmic, DepartmentGeneral},
	},
	{
		Name:      "Queen Mary Hospital",
		Address:   "102 Pok Fu Lam Road, Pok Fu Lam, Hong Kong Island",
		Contact:   "2255 3838",
		Latitude:  22.2700,
		Longitude: 114.1310,
		Departments: []string{DepartmentEmergency, DepartmentInternal, DepartmentNeurology, DepartmentGastro,
			DepartmentPaediatrics, DepartmentObstetrics, DepartmentOphthalmic},
	},
	{
		Name:        "Prince of Wales Hospital",
		Address:     "30-32 Ngan Shing Street, Sha Tin, New Territories",
		Contact:     "3505 2211",
		Latitude:    22.3797,
		Longitude:   114.2013,
		Departments: []string{DepartmentEmergency, DepartmentInternal, DepartmentENT, DepartmentDermatology, DepartmentPsychiatry},
	},
}

// Directory answers department searches with the nearest matching hospital.
type Directory struct {
	hospitals []Hospital
	origin    Coordinates
}

// NewDirectory uses DefaultHospitals when hospitals is empty.
func NewDirectory(hospitals []Hospital, origin Coordinates) *Directory {
	if len(hospitals) == 0 {
		hospitals = DefaultHospitals
	}
	return &Directory{hospitals: hospitals, origin: origin}
}

// Search finds the nearest hospital offering department. Matching ignores
// case and accepts a whole-word prefix either way, so "emergency" finds
// "emergency department". An empty department matches any hospital.
func (d *Directory) Search(department string) (medical.HospitalRecommendation, error) {
	want := strings.ToLower(strings.TrimSpace(department))
	var (
		best     *Hospital
		bestDept string
		bestDist = math.Inf(1)
	)
	for i := range d.hospitals {
		h := &d.hospitals[i]
		dept, ok := h.offers(want)
		if !ok {
			continue
		}
		dist := haversineKM(d.origin, Coordinates{h.Latitude, h.Longitude})
		if dist < bestDist {
			best, bestDept, bestDist = h, dept, dist
		}
	}
	if best == nil {
		return medical.HospitalRecommendation{}, fmt.Errorf("%w: %q", ErrNoHospital, department)
	}
	return medical.HospitalRecommendation{
		HospitalName: best.Name,
		Address:      best.Address,
		Distance:     math.Round(bestDist*10) / 10,
		Contact:      best.Contact,
		Department:   bestDept,
	}, nil
}

func (h *Hospital) offers(want string) (string, bool) {
	if want == "" {
		if len(h.Departments) == 0 {
			return "", false
		}
		return h.Departments[0], true
	}
	for _, dept := range h.Departments {
		have := strings.ToLower(dept)
		if have == want || strings.HasPrefix(have, want+" ") || strings.HasPrefix(want, have+" ") {
			return dept, true
		}
	}
	return "", false
}

const earthRadiusKM = 6371.0

func haversineKM(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
