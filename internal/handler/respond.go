package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/pkg/logger"
	"projecthub/prometheus"
)

// respond writes the success envelope shared by every endpoint.
func respond(c echo.Context, status int, message string, data interface{}) error {
	body := echo.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

// fail maps a taxonomy error onto the response envelope. Internal
// failures are logged with their cause but surface only a generic
// message.
func fail(c echo.Context, err error) error {
	e := apperr.From(err)

	if e.Kind == apperr.Internal {
		logger.FromContext(c).Error("request failed", zap.Error(err))
		return c.JSON(e.HTTPStatus(), echo.Map{
			"success": false,
			"message": "internal server error",
			"code":    e.Code,
		})
	}

	if e.Kind == apperr.Forbidden || e.Kind == apperr.Unauthenticated {
		prometheus.RecordAuthError("policy_denied")
	}

	return c.JSON(e.HTTPStatus(), echo.Map{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	})
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, apperr.New(apperr.InvalidInput, "invalid "+name)
	}
	return uint(id), nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
