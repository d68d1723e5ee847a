package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/company/openapi"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// CompanyController defines the business logic interface
// that the HTTP handlers will invoke.
type CompanyController interface {
	ListCompanies(ctx context.Context) []models.CompanySummary
	CreateCompany(ctx context.Context, company *models.Company) (*models.Company, error)
	GetCompany(ctx context.Context, id int) (*models.Company, error)
	UpdateCompany(ctx context.Context, id int, update models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id int) error
}

const companyIDParam = "companyId"

// CompanyHandler provides the REST endpoints for Company operations,
// mapping requests to a CompanyController interface.
type CompanyHandler struct {
	service CompanyController
	docs    *openapi.Document
	logger  *zap.Logger
}

// NewCompanyHandler constructs a new CompanyHandler with the given service,
// API description document and logger.
func NewCompanyHandler(service CompanyController, docs *openapi.Document, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		service: service,
		docs:    docs,
		logger:  logger.Named("http_handler"),
	}
}

// NewMux builds the gateway mux with every company and documentation route.
func (h *CompanyHandler) NewMux() (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(routingErrorHandler))

	item := models.BasePath + "/{" + companyIDParam + "}"
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, models.BasePath, h.ListCompanies},
		{http.MethodPost, models.BasePath, h.CreateCompany},
		{http.MethodGet, item, h.GetCompany},
		{http.MethodPatch, item, h.PatchCompany},
		{http.MethodDelete, item, h.DeleteCompany},
		{http.MethodGet, openapi.JSONPath, h.ServeOpenAPIJSON},
		{http.MethodGet, openapi.YAMLPath, h.ServeOpenAPIYAML},
		{http.MethodGet, openapi.DocsPath, h.ServeDocs},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// ListCompanies returns the {id, name} summary of every company.
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, h.service.ListCompanies(r.Context()))
}

// CreateCompany creates a company and points Location at it.
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	req, err := decodeCompanyRequest(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	created, err := h.service.CreateCompany(r.Context(), req.toModel())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", models.ResourcePath(created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// GetCompany fetches a Company by ID, answering 404 if not found.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := parseCompanyID(params[companyIDParam])
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// PatchCompany overwrites the supplied non-empty fields of a Company.
func (h *CompanyHandler) PatchCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, err := decodeCompanyRequest(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	id, ok := parseCompanyID(params[companyIDParam])
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	updated, err := h.service.UpdateCompany(r.Context(), id, req.toUpdate())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCompany removes a Company given its ID.
func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := parseCompanyID(params[companyIDParam])
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeOpenAPIJSON serves the API description document.
func (h *CompanyHandler) ServeOpenAPIJSON(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeRaw(w, http.StatusOK, "application/json; charset=utf-8", h.docs.JSON())
}

// ServeOpenAPIYAML serves the API description document as YAML.
func (h *CompanyHandler) ServeOpenAPIYAML(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeRaw(w, http.StatusOK, "application/yaml; charset=utf-8", h.docs.YAML())
}

// ServeDocs serves the interactive documentation viewer.
func (h *CompanyHandler) ServeDocs(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeRaw(w, http.StatusOK, "text/html; charset=utf-8", h.docs.Page())
}

func routingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, httpStatus int) {
	switch httpStatus {
	case http.StatusMethodNotAllowed:
		writeError(w, httpStatus, msgNotAllowed)
	case http.StatusNotFound:
		writeError(w, httpStatus, msgRouteNotFound)
	default:
		writeError(w, httpStatus, http.StatusText(httpStatus))
	}
}
