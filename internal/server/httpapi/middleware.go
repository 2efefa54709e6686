package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

const subjectKey = "subject"

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = classify(err).status
	}
	s.logger.Info(c.UserContext(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)
	return err
}

// requireAdmin rejects requests without a valid admin bearer token.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	header := c.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return common.ErrorUnauthorized
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
	if token == "" {
		return common.ErrorUnauthorized
	}

	subject, err := auth.GetSubjectFromToken(token, s.jwtSecret)
	if err != nil {
		return err
	}

	c.Locals(subjectKey, subject)
	return c.Next()
}
