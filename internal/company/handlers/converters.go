package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

const (
	msgInvalidPayload = "Invalid request payload."
	msgNotFound       = "Company not found."
	msgInternal       = "Internal server error."
	msgRouteNotFound  = "Not found."
	msgNotAllowed     = "Method not allowed."

	// maxBodyBytes matches the usual 100kb JSON body limit.
	maxBodyBytes = 100 << 10
)

// companyRequest is the wire shape of create and update bodies. Pointers
// tell absent fields apart from empty ones.
type companyRequest struct {
	Name     *string `json:"name"`
	Industry *string `json:"industry"`
	Address  *string `json:"address"`
}

// decodeCompanyRequest reads a JSON object body. An empty body or a JSON
// null decodes to a request with no fields. Anything else that is not an
// object with string-valued fields is an invalid payload.
func decodeCompanyRequest(r *http.Request) (companyRequest, error) {
	var req companyRequest
	if r.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return req, fmt.Errorf("%w: read body: %v", e.ErrInvalidInput, err)
	}
	if len(body) > maxBodyBytes {
		return req, fmt.Errorf("%w: body too large", e.ErrInvalidInput)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return req, nil
}

// toModel converts a create request into a Company; a missing address
// becomes the empty string.
func (req companyRequest) toModel() *models.Company {
	c := &models.Company{}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Industry != nil {
		c.Industry = *req.Industry
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	return c
}

func (req companyRequest) toUpdate() models.CompanyUpdate {
	return models.CompanyUpdate{
		Name:     req.Name,
		Industry: req.Industry,
		Address:  req.Address,
	}
}

// parseCompanyID reads the leading base-10 integer of a path segment, so
// "12abc" is 12. A segment without leading digits, or one out of range,
// yields ok=false and is treated as an id that matches no company.
func parseCompanyID(s string) (id int, ok bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}

	n, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil || n > math.MaxInt || n < math.MinInt {
		return 0, false
	}
	return int(n), true
}

// mapServiceError maps domain errors to gRPC status codes and the
// public error message.
func (h *CompanyHandler) mapServiceError(err error) (codes.Code, string) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return codes.NotFound, msgNotFound
	case errors.Is(err, e.ErrInvalidInput):
		return codes.InvalidArgument, msgInvalidPayload
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return codes.Internal, msgInternal
	}
}

func (h *CompanyHandler) writeServiceError(w http.ResponseWriter, err error) {
	code, msg := h.mapServiceError(err)
	writeError(w, runtime.HTTPStatusFromCode(code), msg)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, httpStatus int, msg string) {
	writeJSON(w, httpStatus, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, httpStatus int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		httpStatus = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgInternal + `"}`)
	}
	writeRaw(w, httpStatus, "application/json; charset=utf-8", body)
}

func writeRaw(w http.ResponseWriter, httpStatus int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}
