package handlers_flows

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

// GenerateStubsHandler handles GenerateStubs requests
type GenerateStubsHandler struct {
	service FlowService
}

// NewGenerateStubsHandler creates a new GenerateStubsHandler with the given service
func NewGenerateStubsHandler(service FlowService) *GenerateStubsHandler {
	return &GenerateStubsHandler{service: service}
}

// Topic returns the NATS topic for this handler
func (h *GenerateStubsHandler) Topic() string {
	return TopicGenerateStubs
}

// Process handles the business logic for GenerateStubs
func (h *GenerateStubsHandler) Process(jsonData []byte) []byte {
	var input config.GenerateStubsRequest

	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()

	err := decoder.Decode(&input)
	if err != nil {
		return utils.GenerateErrorPayload(lcferrors.ErrorValidationError)
	}

	// Validate required fields
	if input.Integration == "" {
		return utils.GenerateErrorPayload(lcferrors.ErrorMissingParameter)
	}

	// Call the service to perform the actual operation
	result, err := h.service.GenerateStubs(&input)
	if err != nil {
		slog.Error("GenerateStubs service failed", "err", err)
		return errorResponse(err)
	}

	// Return as JSON, to simulate the NATS response
	jsonResponse, err := json.Marshal(result)
	if err != nil {
		slog.Error("GenerateStubsHandler could not marshal output", "err", err)
		return nil
	}

	return jsonResponse
}
