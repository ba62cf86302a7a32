package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/adboard/classifieds/internal/api/middleware"
	"github.com/adboard/classifieds/internal/core/domain"
)

// ctxIdentity returns the caller stored by the Auth middleware. Its absence
// means the route was registered without Auth, which is reported as 401.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: missing authentication", domain.ErrUnauthorized)
	}
	return id, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: id must be a positive integer", domain.ErrValidation)
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs the struct
// validator when one is registered.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
