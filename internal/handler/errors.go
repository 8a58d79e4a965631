package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/storefront-auth/internal/apperr"
)

// writeError maps err onto the response using apperr.Status. adminPath
// selects 404 instead of 401 for unknown users.
func writeError(c echo.Context, log logrus.FieldLogger, err error, adminPath bool) error {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	if kind == apperr.UserNotFound && adminPath {
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": apperr.Detail(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
