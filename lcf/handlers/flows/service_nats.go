package handlers_flows

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

// NATSFlowService handles flow operations via NATS messaging
type NATSFlowService struct {
	natsConn *nats.Conn
}

// NewNATSFlowService creates a new NATS-based flow service
func NewNATSFlowService(conn *nats.Conn) FlowService {
	return &NATSFlowService{natsConn: conn}
}

func (s *NATSFlowService) ParseOperations(input *config.ParseOperationsRequest) (*config.ParseOperationsResponse, error) {
	return utils.NATSRequest[config.ParseOperationsResponse](s.natsConn, TopicParseOperations, input, 30*time.Second)
}

func (s *NATSFlowService) GenerateStubs(input *config.GenerateStubsRequest) (*config.GenerateStubsResponse, error) {
	// Generation may pull and extract a package archive first, allow it time
	return utils.NATSRequest[config.GenerateStubsResponse](s.natsConn, TopicGenerateStubs, input, 2*time.Minute)
}
