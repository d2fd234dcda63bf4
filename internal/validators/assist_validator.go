package validators

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("emergency_type", validateEmergencyType)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	m := make(map[string]string, len(v))
	for _, err := range v {
		m[err.Field] = err.Message
	}
	return m
}

// CreateRequestRequest is the payload for opening an emergency request.
type CreateRequestRequest struct {
	Type      string  `json:"type" validate:"required,emergency_type"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"omitempty,max=255"`
	VehicleID string  `json:"vehicle_id" validate:"omitempty,object_id"`
}

// DispatchRequestRequest selects the provider for a searching request.
type DispatchRequestRequest struct {
	ProviderID string `json:"provider_id" validate:"required,object_id"`
}

// AdvanceStatusRequest moves a dispatched request along its lifecycle.
type AdvanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=en_route arrived resolved"`
}

func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errors ValidationErrors
	for _, fieldErr := range err.(validator.ValidationErrors) {
		errors = append(errors, ValidationError{
			Field:   strings.ToLower(fieldErr.Field()),
			Tag:     fieldErr.Tag(),
			Message: messageForTag(fieldErr),
		})
	}
	return errors
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

func validateEmergencyType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "towing", "flat_tire", "dead_battery", "lockout", "accident":
		return true
	}
	return false
}

func messageForTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "this field is required"
	case "object_id":
		return "must be a valid object id"
	case "emergency_type":
		return "unknown emergency type"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "min", "max":
		return fmt.Sprintf("value out of range (%s=%s)", fieldErr.Tag(), fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
