package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateCreateRequestRequest(t *testing.T) {
	valid := &CreateRequestRequest{
		Type:      "dead_battery",
		Latitude:  34.1478,
		Longitude: -118.1445,
		Address:   "1200 E Colorado Blvd",
		VehicleID: primitive.NewObjectID().Hex(),
	}
	assert.Nil(t, ValidateStruct(valid))

	tests := []struct {
		name   string
		mutate func(*CreateRequestRequest)
		field  string
	}{
		{"unknown type", func(r *CreateRequestRequest) { r.Type = "alien_abduction" }, "type"},
		{"missing type", func(r *CreateRequestRequest) { r.Type = "" }, "type"},
		{"latitude too big", func(r *CreateRequestRequest) { r.Latitude = 91 }, "latitude"},
		{"longitude too small", func(r *CreateRequestRequest) { r.Longitude = -181 }, "longitude"},
		{"bad vehicle id", func(r *CreateRequestRequest) { r.VehicleID = "garage-3" }, "vehicleid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := *valid
			tt.mutate(&request)

			errs := ValidateStruct(&request)
			require.NotNil(t, errs)
			assert.Contains(t, errs.ToMap(), tt.field)
		})
	}
}

func TestValidateDispatchRequestRequest(t *testing.T) {
	assert.Nil(t, ValidateStruct(&DispatchRequestRequest{ProviderID: primitive.NewObjectID().Hex()}))

	errs := ValidateStruct(&DispatchRequestRequest{})
	require.NotNil(t, errs)
	assert.Contains(t, errs.ToMap(), "providerid")

	errs = ValidateStruct(&DispatchRequestRequest{ProviderID: "nope"})
	require.NotNil(t, errs)
}

func TestValidateAdvanceStatusRequest(t *testing.T) {
	for _, status := range []string{"en_route", "arrived", "resolved"} {
		assert.Nil(t, ValidateStruct(&AdvanceStatusRequest{Status: status}), status)
	}

	// Cancellation has its own endpoint; it is not an operator advancement.
	for _, status := range []string{"", "cancelled", "searching", "dispatched", "teleported"} {
		assert.NotNil(t, ValidateStruct(&AdvanceStatusRequest{Status: status}), status)
	}
}

func TestValidationErrorsFormatting(t *testing.T) {
	errs := ValidateStruct(&CreateRequestRequest{Type: "warp_drive", Latitude: 95})
	require.NotNil(t, errs)

	assert.NotEmpty(t, errs.Error())
	m := errs.ToMap()
	assert.Contains(t, m, "type")
	assert.Contains(t, m, "latitude")
}
