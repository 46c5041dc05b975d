package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"automate/internal/domain"
	"automate/internal/engine"
)

func registerStaging(api huma.API, e engine.Engine) {
	type stagedPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-staged-actions",
		Method:      http.MethodGet,
		Path:        "/staging/actions",
		Summary:     "List staged actions",
		Tags:        []string{"staging"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Action `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Action `json:"body"`
		}{Body: e.Staging.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-staged-action",
		Method:        http.MethodPost,
		Path:          "/staging/action",
		Summary:       "Stage an action bound to a service method",
		Tags:          []string{"staging"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateStagedActionRequest `json:"body"`
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		a, err := e.CreateStagedAction(engine.StagedActionOptions{
			Name:    input.Body.Name,
			Service: input.Body.Service,
			Method:  input.Body.Method,
			Args:    input.Body.Args,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: a.ID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-staged-action",
		Method:      http.MethodGet,
		Path:        "/staging/action/{id}",
		Summary:     "Get a staged action",
		Tags:        []string{"staging"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *stagedPath) (*struct {
		Body domain.Action `json:"body"`
	}, error) {
		a, err := e.Staging.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Action `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-staged-action",
		Method:      http.MethodDelete,
		Path:        "/staging/action/{id}",
		Summary:     "Discard a staged action",
		Tags:        []string{"staging"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *stagedPath) (*struct{}, error) {
		if err := e.Staging.Remove(input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
