package handlers_flows

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

// ParseOperationsHandler handles ParseOperations requests
type ParseOperationsHandler struct {
	service FlowService
}

// NewParseOperationsHandler creates a new ParseOperationsHandler with the given service
func NewParseOperationsHandler(service FlowService) *ParseOperationsHandler {
	return &ParseOperationsHandler{service: service}
}

// Topic returns the NATS topic for this handler
func (h *ParseOperationsHandler) Topic() string {
	return TopicParseOperations
}

// Process handles the business logic for ParseOperations
func (h *ParseOperationsHandler) Process(jsonData []byte) []byte {
	var input config.ParseOperationsRequest

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
	result, err := h.service.ParseOperations(&input)
	if err != nil {
		slog.Error("ParseOperations service failed", "err", err)
		return errorResponse(err)
	}

	// Return as JSON, to simulate the NATS response
	jsonResponse, err := json.Marshal(result)
	if err != nil {
		slog.Error("ParseOperationsHandler could not marshal output", "err", err)
		return nil
	}

	return jsonResponse
}
