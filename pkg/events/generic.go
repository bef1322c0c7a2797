// Copyright 2024-2026 Aiku AI

package events

// GenericAlert is a free-form message posted to a configured generic
// endpoint.
type GenericAlert struct {
	// Endpoint is the configured endpoint name the alert arrived on.
	Endpoint string `json:"-"`
	Tag      string `json:"tag"`
	Message  string `json:"message" validate:"required"`
	URL      string `json:"url" validate:"omitempty,url"`
}

func (*GenericAlert) Source() Source { return SourceGeneric }
func (*GenericAlert) isEvent()       {}

// ParseGeneric decodes a generic alert body received on endpoint.
func ParseGeneric(endpoint string, body []byte) (Event, error) {
	alert, err := decode[GenericAlert](SourceGeneric, endpoint, body)
	if err != nil {
		return nil, err
	}
	alert.Endpoint = endpoint
	return alert, nil
}
