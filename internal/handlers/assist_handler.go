package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"roadassist/internal/models"
	"roadassist/internal/services"
	"roadassist/internal/utils"
	"roadassist/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssistHandler struct {
	dispatchService services.DispatchService
	locatorService  services.LocatorService
}

func NewAssistHandler(dispatchService services.DispatchService, locatorService services.LocatorService) *AssistHandler {
	return &AssistHandler{
		dispatchService: dispatchService,
		locatorService:  locatorService,
	}
}

// CreateRequest opens a new emergency request for the authenticated user
func (h *AssistHandler) CreateRequest(c *gin.Context) {
	var request validators.CreateRequestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); errs != nil {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	requesterID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	input := &services.CreateRequestInput{
		RequesterID: requesterID,
		Type:        models.EmergencyType(request.Type),
		Latitude:    request.Latitude,
		Longitude:   request.Longitude,
		Address:     request.Address,
	}
	if request.VehicleID != "" {
		vehicleID, err := primitive.ObjectIDFromHex(request.VehicleID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid vehicle ID")
			return
		}
		input.VehicleID = &vehicleID
	}

	created, err := h.dispatchService.CreateRequest(c.Request.Context(), input)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency request created", created)
}

// GetRequest returns one request for status polling
func (h *AssistHandler) GetRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	requesterID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.dispatchService.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	// Operators may inspect any request; requesters only their own.
	if c.GetString("user_type") != "operator" && !request.IsOwnedBy(requesterID) {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Request retrieved", request)
}

// DispatchRequest assigns the selected provider to a searching request
func (h *AssistHandler) DispatchRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	var request validators.DispatchRequestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(&request); errs != nil {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	providerID, err := primitive.ObjectIDFromHex(request.ProviderID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid provider ID")
		return
	}

	requesterID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	dispatched, err := h.dispatchService.Dispatch(c.Request.Context(), requesterID, requestID, providerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Provider dispatched", dispatched)
}

// AdvanceStatus moves a request along its lifecycle (operator only)
func (h *AssistHandler) AdvanceStatus(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	var request validators.AdvanceStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(&request); errs != nil {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	advanced, err := h.dispatchService.AdvanceStatus(c.Request.Context(), requestID, models.RequestStatus(request.Status))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request status advanced", advanced)
}

// CancelRequest cancels the caller's request; safe to retry
func (h *AssistHandler) CancelRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	requesterID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	cancelled, err := h.dispatchService.Cancel(c.Request.Context(), requesterID, requestID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request cancelled", cancelled)
}

// GetRequestHistory lists the caller's past requests
func (h *AssistHandler) GetRequestHistory(c *gin.Context) {
	requesterID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.dispatchService.GetRequestHistory(c.Request.Context(), requesterID, params)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	utils.SuccessResponseWithMeta(c, "Request history retrieved", gin.H{"requests": requests}, meta)
}

// GetNearbyProviders ranks catalog providers around the given point
func (h *AssistHandler) GetNearbyProviders(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid longitude")
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		utils.BadRequestResponse(c, "Coordinates out of range")
		return
	}

	var categories []models.ProviderCategory
	if raw := c.Query("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			categories = append(categories, models.ProviderCategory(part))
		}
	}

	result, err := h.locatorService.NearbyProviders(c.Request.Context(), lat, lng, categories)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if len(result.Providers) == 0 {
		// Not an error; the client renders a "no providers nearby" state.
		utils.SuccessResponse(c, utils.ErrNoProvidersNear, result)
		return
	}

	utils.SuccessResponse(c, "Nearby providers retrieved", result)
}

// respondServiceError maps the service error taxonomy onto HTTP responses.
func (h *AssistHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		utils.UnauthorizedResponse(c)
	case errors.Is(err, models.ErrValidation):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}

func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}

	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
