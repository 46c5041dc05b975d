package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"automate/internal/domain"
	"automate/internal/engine"
)

type flowPath struct {
	ID string `path:"flow_id"`
}

type flowOutput struct {
	Body domain.Flow `json:"body"`
}

type actionPath struct {
	FlowID   string `path:"flow_id"`
	ActionID string `path:"action_id"`
}

func registerFlows(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-flows",
		Method:      http.MethodGet,
		Path:        "/flows",
		Summary:     "List flows",
		Tags:        []string{"flows"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Flow `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Flow `json:"body"`
		}{Body: e.Flows.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-flow",
		Method:        http.MethodPost,
		Path:          "/flow",
		Summary:       "Create a flow",
		Description:   "A missing body creates an empty flow with a generated id.",
		Tags:          []string{"flows"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body *CreateFlowRequest `json:"body"`
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		f, err := e.CreateFlow(ctx, input.Body.template())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: f.ID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-flow",
		Method:      http.MethodGet,
		Path:        "/flow/{flow_id}",
		Summary:     "Get a flow",
		Tags:        []string{"flows"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *flowPath) (*flowOutput, error) {
		f, err := e.Flows.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &flowOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-flow",
		Method:      http.MethodPut,
		Path:        "/flow/{flow_id}",
		Summary:     "Update flow metadata",
		Description: "Without a body only lastModifiedDate changes.",
		Tags:        []string{"flows"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"flow_id"`
		Body *UpdateFlowRequest `json:"body"`
	}) (*flowOutput, error) {
		f, err := e.UpdateFlow(ctx, input.ID, input.Body.update())
		if err != nil {
			return nil, handleError(err)
		}
		return &flowOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "destroy-flow",
		Method:      http.MethodDelete,
		Path:        "/flow/{flow_id}",
		Summary:     "Destroy a flow",
		Tags:        []string{"flows"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *flowPath) (*struct{}, error) {
		if err := e.DestroyFlow(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "run-flow",
		Method:        http.MethodPost,
		Path:          "/flow/{flow_id}",
		Summary:       "Dispatch a flow run",
		Description:   "Hands the flow to the automation engine and returns without waiting for execution.",
		Tags:          []string{"flows"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"flow_id"`
		Body *map[string]any `json:"body"`
	}) (*struct {
		Body RunResponse `json:"body"`
	}, error) {
		args := map[string]any{}
		if input.Body != nil && *input.Body != nil {
			args = *input.Body
		}
		if err := e.RunFlow(input.ID, args); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunResponse `json:"body"`
		}{Body: RunResponse{FlowID: input.ID, Status: "dispatched"}}, nil
	})
}

func registerFlowActions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "attach-action",
		Method:        http.MethodPost,
		Path:          "/flow/{flow_id}/action/{action_id}",
		Summary:       "Attach a staged action to the end of a flow",
		Tags:          []string{"actions"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *actionPath) (*flowOutput, error) {
		f, err := e.AttachAction(ctx, input.FlowID, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &flowOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-flow-action",
		Method:      http.MethodGet,
		Path:        "/flow/{flow_id}/action/{action_id}",
		Summary:     "Get an action attached to a flow",
		Tags:        []string{"actions"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actionPath) (*struct {
		Body domain.Action `json:"body"`
	}, error) {
		a, err := e.Flows.GetAction(input.FlowID, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Action `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-action",
		Method:      http.MethodPut,
		Path:        "/flow/{flow_id}/action/{action_id}/position/{pos}",
		Summary:     "Move an action within a flow",
		Description: "Positions outside the action list are clamped to its bounds.",
		Tags:        []string{"actions"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FlowID   string `path:"flow_id"`
		ActionID string `path:"action_id"`
		Pos      int    `path:"pos"`
	}) (*flowOutput, error) {
		f, err := e.MoveAction(ctx, input.FlowID, input.ActionID, input.Pos)
		if err != nil {
			return nil, handleError(err)
		}
		return &flowOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-action",
		Method:      http.MethodDelete,
		Path:        "/flow/{flow_id}/action/{action_id}",
		Summary:     "Remove an action from a flow",
		Description: "Removing an action the flow does not hold leaves the flow unchanged.",
		Tags:        []string{"actions"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actionPath) (*flowOutput, error) {
		f, err := e.RemoveAction(ctx, input.FlowID, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &flowOutput{Body: f}, nil
	})
}
