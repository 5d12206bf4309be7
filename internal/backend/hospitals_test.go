package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinates(t *testing.T) {
	c, err := ParseCoordinates(" 22.3193 , 114.1694 ")
	require.NoError(t, err)
	assert.InDelta(t, 22.3193, c.Latitude, 1e-9)
	assert.InDelta(t, 114.1694, c.Longitude, 1e-9)

	for _, bad := range []string{"", "22.3", "a,b", "91,0", "0,181"} {
		_, err := ParseCoordinates(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestDirectorySearchNearest(t *testing.T) {
	kwunTong := Coordinates{Latitude: 22.3133, Longitude: 114.2258}
	dir := NewDirectory(nil, kwunTong)

	rec, err := dir.Search("emergency department")
	require.NoError(t, err)
	assert.Equal(t, "United Christian Hospital", rec.HospitalName)
	assert.Equal(t, "130 Hip Wo Street, Kwun Tong, Kowloon", rec.Address)
	assert.Equal(t, "2379 9611", rec.Contact)
	assert.Equal(t, DepartmentEmergency, rec.Department)
	assert.Greater(t, rec.Distance, 0.0)
	assert.Less(t, rec.Distance, 2.0)
	require.NoError(t, rec.Validate())
}

func TestDirectorySearchMatching(t *testing.T) {
	dir := NewDirectory(nil, Coordinates{Latitude: 22.3193, Longitude: 114.1694})

	rec, err := dir.Search("Emergency")
	require.NoError(t, err)
	assert.Equal(t, DepartmentEmergency, rec.Department)

	rec, err = dir.Search("ENT")
	require.NoError(t, err)
	assert.Equal(t, DepartmentENT, rec.Department)

	rec, err = dir.Search("")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.HospitalName)

	_, err = dir.Search("veterinary")
	assert.ErrorIs(t, err, ErrNoHospital)
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, haversineKM(Coordinates{22, 114}, Coordinates{22, 114}), 1e-9)
	// One degree of latitude is about 111 km.
	assert.InDelta(t, 111.2, haversineKM(Coordinates{0, 0}, Coordinates{1, 0}), 0.1)
}
