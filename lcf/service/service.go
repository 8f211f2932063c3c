package service

import (
	"fmt"

	"github.com/strongcodr/lowcodefusion/lcf/services/catalogd"
	"github.com/strongcodr/lowcodefusion/lcf/services/nats"
	"github.com/strongcodr/lowcodefusion/lcf/services/stubgend"
)

type Service interface {
	Start() (int, error)
	Stop() error
	Status() (string, error)
	Shutdown() error
	Reload() error
}

func New(btype string, config any) (Service, error) {

	switch btype {
	case "nats":
		return nats.New(config)

	case "catalogd":
		return catalogd.New(config)

	case "stubgend":
		return stubgend.New(config)

	}

	return nil, fmt.Errorf("unknown service type: %s", btype)
}
