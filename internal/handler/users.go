package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dotsalary/dotsalary/internal/handler/dto"
	"github.com/dotsalary/dotsalary/internal/middleware"
	"github.com/dotsalary/dotsalary/internal/model"
	"github.com/dotsalary/dotsalary/internal/service"
)

// Query defaults applied when a parameter is absent.
var (
	defaultMinSalary = decimal.Zero
	defaultMaxSalary = decimal.NewFromInt(4000)
)

const defaultOffset = 0

// UserQuerier runs salary range queries.
type UserQuerier interface {
	GetUsers(ctx context.Context, input service.QueryInput) ([]*model.User, error)
}

// UsersHandler handles salary queries.
type UsersHandler struct {
	svc    UserQuerier
	logger *slog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(svc UserQuerier, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	input, err := parseQueryInput(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	users, err := h.svc.GetUsers(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUsersResponse(users))
}

func (h *UsersHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var paramErr *service.ParameterError
	if errors.As(err, &paramErr) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: paramErr.Message})
		return
	}

	h.logger.Error("query failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to query users"})
}

// parseQueryInput reads the query string, filling in defaults for min, max
// and offset. Empty values count as absent. Range checks are left to the
// service.
func parseQueryInput(q url.Values) (service.QueryInput, error) {
	input := service.QueryInput{Sort: q.Get("sort")}

	minSalary, err := decimalParam(q, "min", defaultMinSalary)
	if err != nil {
		return input, err
	}
	maxSalary, err := decimalParam(q, "max", defaultMaxSalary)
	if err != nil {
		return input, err
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		return input, err
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return input, err
	}

	if offset == nil {
		o := defaultOffset
		offset = &o
	}

	input.Min = &minSalary
	input.Max = &maxSalary
	input.Offset = offset
	input.Limit = limit
	return input, nil
}

func decimalParam(q url.Values, name string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, invalidParam(name)
	}
	return v, nil
}

func intParam(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidParam(name)
	}
	return &v, nil
}

func invalidParam(name string) error {
	return &service.ParameterError{Message: "Invalid value for parameter " + name}
}
