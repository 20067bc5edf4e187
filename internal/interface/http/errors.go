package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/pkg/response"
	"github.com/maplify-tech/whiteboard/pkg/validation"
)

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *application.ValidationError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		response.Error(c, http.StatusBadRequest, application.ErrValidation.Error(), ve.Fields)
	case errors.As(err, &mbe):
		response.Error(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
	case errors.Is(err, application.ErrImportFormat):
		response.Error(c, http.StatusBadRequest, application.ErrImportFormat.Error(), nil)
	case errors.Is(err, application.ErrBoardNotFound):
		response.Error(c, http.StatusNotFound, application.ErrBoardNotFound.Error(), nil)
	case errors.Is(err, application.ErrFileNotFound):
		response.Error(c, http.StatusNotFound, application.ErrFileNotFound.Error(), nil)
	case errors.Is(err, application.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, application.ErrUnauthorized.Error(), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, application.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, application.ErrEmailTaken):
		response.Error(c, http.StatusConflict, application.ErrEmailTaken.Error(), nil)
	case errors.Is(err, application.ErrStorageUnavailable):
		response.Error(c, http.StatusServiceUnavailable, application.ErrStorageUnavailable.Error(), nil)
	default:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error("request failed")
		}
		response.Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// bindError reports a ShouldBind failure.
func bindError(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		response.Error(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	response.Error(c, http.StatusBadRequest, application.ErrValidation.Error(), validation.ToDetails(err))
}
