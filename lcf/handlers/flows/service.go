package handlers_flows

import (
	"errors"

	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

// NATS topics served by the flows workers
const (
	TopicParseOperations = "flows.ParseOperations"
	TopicGenerateStubs   = "flows.GenerateStubs"
)

// FlowService defines the interface for flow parsing and stub generation
// business logic
type FlowService interface {
	ParseOperations(input *config.ParseOperationsRequest) (*config.ParseOperationsResponse, error)
	GenerateStubs(input *config.GenerateStubsRequest) (*config.GenerateStubsResponse, error)
}

// errorResponse converts a service error into the bus error payload.
// Classified errors keep their code and detail; anything else reports an
// internal failure.
func errorResponse(err error) []byte {
	var lcfErr *lcferrors.LCFError
	if errors.As(err, &lcfErr) {
		return utils.GenerateErrorDetailPayload(lcfErr.Code, lcfErr.Detail)
	}
	return utils.GenerateErrorPayload(lcferrors.ErrorInternalFailure)
}
