package stage

import "context"

// Checker is implemented by every pipeline executor so the supervisor can
// report whether its external tools are usable.
type Checker interface {
	HealthCheck(context.Context) Health
}

// Health is a lane's readiness as shown by the status endpoint.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy records why name cannot run, usually a missing binary.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
