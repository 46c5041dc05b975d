package server

import (
	"automate/internal/domain"
)

// Request payloads

type CreateFlowRequest struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Active      bool     `json:"active,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
}

// UpdateFlowRequest only touches the fields present in the body. A present
// tags or triggers array replaces the whole set.
type UpdateFlowRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Owner       *string   `json:"owner,omitempty"`
	Logo        *string   `json:"logo,omitempty"`
	Active      *bool     `json:"active,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Triggers    *[]string `json:"triggers,omitempty"`
}

type CreateStagedActionRequest struct {
	Name    string         `json:"name,omitempty"`
	Service string         `json:"service" example:"http"`
	Method  string         `json:"method" example:"get"`
	Args    map[string]any `json:"args,omitempty"`
}

// Response payloads

type IDResponse struct {
	ID string `json:"id"`
}

type EngineStatusResponse struct {
	Running bool `json:"running"`
}

type RunResponse struct {
	FlowID string `json:"flow_id"`
	Status string `json:"status" enum:"dispatched"`
}

type EventsResponse struct {
	Items []domain.Event `json:"items"`
}

// template maps a missing body to the empty template.
func (r *CreateFlowRequest) template() domain.FlowTemplate {
	if r == nil {
		return domain.FlowTemplate{}
	}
	return domain.FlowTemplate{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Logo:        r.Logo,
		Active:      r.Active,
		Tags:        r.Tags,
		Triggers:    r.Triggers,
	}
}

func (r *UpdateFlowRequest) update() domain.FlowUpdate {
	if r == nil {
		return domain.FlowUpdate{}
	}
	return domain.FlowUpdate{
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Logo:        r.Logo,
		Active:      r.Active,
		Tags:        r.Tags,
		Triggers:    r.Triggers,
	}
}
