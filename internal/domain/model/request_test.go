package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() *DrillRequest {
	return &DrillRequest{
		Location:     Location{Address: "1-1 Chiyoda, Tokyo", Lat: 35.68, Lng: 139.75},
		Participants: Participants{Total: 120, Children: 30, Languages: []string{"ja", "en"}},
		Hazard:       HazardSpec{Types: []HazardType{HazardEarthquake, HazardFire}, DrillDate: "2026-09-01"},
	}
}

func TestDrillRequest_Validate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())
}

func TestDrillRequest_Validate_MissingAddress(t *testing.T) {
	r := validRequest()
	r.Location.Address = ""
	assert.ErrorContains(t, r.Validate(), "location.address")
}

func TestDrillRequest_Validate_NoParticipants(t *testing.T) {
	r := validRequest()
	r.Participants.Total = 0
	assert.ErrorContains(t, r.Validate(), "participants.total")
}

func TestDrillRequest_Validate_NoHazards(t *testing.T) {
	r := validRequest()
	r.Hazard.Types = nil
	assert.ErrorContains(t, r.Validate(), "hazard.types")
}

func TestDrillRequest_Validate_UnknownHazard(t *testing.T) {
	r := validRequest()
	r.Hazard.Types = []HazardType{"meteor"}
	assert.ErrorContains(t, r.Validate(), "invalid hazard type")
}

func TestDrillRequest_Validate_BadDate(t *testing.T) {
	r := validRequest()
	r.Hazard.DrillDate = "Sept 1, 2026"
	assert.ErrorContains(t, r.Validate(), "drill_date")
}

func TestDrillRequest_HasHazard(t *testing.T) {
	r := validRequest()
	assert.True(t, r.HasHazard(HazardEarthquake))
	assert.False(t, r.HasHazard(HazardTsunami))
}

func TestHazardType_UnmarshalText(t *testing.T) {
	var h HazardType
	assert.NoError(t, h.UnmarshalText([]byte("FLOOD")))
	assert.Equal(t, HazardFlood, h)
	assert.Error(t, h.UnmarshalText([]byte("blizzard")))
}
