package api

import (
	"net/http"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(),
		RequestID(),
		Logging(),
	)

	mux.Handle("POST /start-state-machine", chain(http.HandlerFunc(h.StartStateMachine)))

	mux.Handle("GET /workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("GET /workflows/{name}/dot", chain(http.HandlerFunc(h.RenderWorkflow)))
	mux.Handle("POST /workflows/{name}/submit", chain(http.HandlerFunc(h.SubmitWorkflow)))
	mux.Handle("POST /workflows/{name}/executions", chain(http.HandlerFunc(h.StartExecution)))

	mux.Handle("GET /executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("GET /executions/{id}/dot", chain(http.HandlerFunc(h.RenderExecution)))

	mux.HandleFunc("GET /healthz", h.Healthz)
}
