package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeDuplicateHash        = "duplicate_hash"
	CodeValidation           = "validation"
	CodeNotArchive           = "not_an_archive"
	CodeNoImages             = "no_images_found"
	CodeTooLarge             = "too_large"
	CodeNotFound             = "not_found"
	CodeUnauthorized         = "unauthorized"
	CodeStorageMisconfigured = "storage_misconfigured"
	CodeInternal             = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps a service error onto a status, code and a message that is
// safe to show to clients.
func classify(err error) apiError {
	var fe *fiber.Error
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return apiError{fiber.StatusBadRequest, CodeDuplicateHash, "this archive has already been uploaded"}
	case errors.Is(err, common.ErrorNotArchive):
		return apiError{fiber.StatusBadRequest, CodeNotArchive, "only .zip archives are supported"}
	case errors.Is(err, common.ErrorNoImages):
		return apiError{fiber.StatusBadRequest, CodeNoImages, "no image files found in archive"}
	case errors.Is(err, common.ErrorTooLarge):
		return apiError{fiber.StatusBadRequest, CodeTooLarge, "file is too large"}
	case errors.Is(err, common.ErrorValidation):
		return apiError{fiber.StatusBadRequest, CodeValidation, err.Error()}
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorCorrupted):
		return apiError{fiber.StatusNotFound, CodeNotFound, "not found"}
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return apiError{fiber.StatusUnauthorized, CodeUnauthorized, "unauthorized"}
	case errors.Is(err, common.ErrorStorageMisconfigured):
		return apiError{fiber.StatusInternalServerError, CodeStorageMisconfigured, "storage is not configured"}
	case errors.As(err, &fe):
		return fromFiberError(fe)
	default:
		return apiError{fiber.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

func fromFiberError(fe *fiber.Error) apiError {
	switch fe.Code {
	case fiber.StatusRequestEntityTooLarge:
		return apiError{fiber.StatusBadRequest, CodeTooLarge, "file is too large"}
	case fiber.StatusNotFound:
		return apiError{fiber.StatusNotFound, CodeNotFound, "not found"}
	case fiber.StatusMethodNotAllowed:
		return apiError{fe.Code, CodeValidation, fe.Message}
	}
	if fe.Code >= fiber.StatusInternalServerError {
		return apiError{fe.Code, CodeInternal, "internal server error"}
	}
	return apiError{fe.Code, CodeValidation, fe.Message}
}

// errorHandler is installed as fiber's ErrorHandler so that handler errors,
// routing misses and body limit violations share one response shape.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	e := classify(err)
	if e.status >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.logger.Debug(c.UserContext(), "request rejected",
			"method", c.Method(), "path", c.Path(), "code", e.code, "error", err)
	}
	return c.Status(e.status).JSON(ErrorResponse{Error: e.message, Code: e.code})
}
