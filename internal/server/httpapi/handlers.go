package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// PageCacheControl is sent with every page image.
const PageCacheControl = "public, max-age=3600"

type UploadResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CollectionID string `json:"collectionId"`
}

type ProgressRequest struct {
	PageNumber *int `json:"pageNumber"`
}

type StatusResponse struct {
	Success bool `json:"success"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field \"file\" is required", common.ErrorValidation)
	}
	if s.maxUploadSize > 0 && fh.Size > s.maxUploadSize {
		return fmt.Errorf("%w: %d bytes", common.ErrorTooLarge, fh.Size)
	}

	meta, err := services.DecodeUploadMetadata([]byte(c.FormValue("metadata")))
	if err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	in := services.UploadInput{Filename: fh.Filename}
	meta.Apply(&in)

	col, err := s.collections.Register(c.UserContext(), in, data)
	if err != nil {
		return err
	}

	return c.JSON(UploadResponse{
		Success:      true,
		Message:      fmt.Sprintf("uploaded %q with %d pages", col.Title, col.TotalPages),
		CollectionID: col.ID,
	})
}

func (s *Server) list(c *fiber.Ctx) error {
	f := models.ListFilter{
		Query: c.Query("q"),
		Mode:  models.ListMode(c.Query("mode")),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: limit must be an integer", common.ErrorValidation)
		}
		f.Limit = n
	}

	items, err := s.collections.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (s *Server) get(c *fiber.Ctx) error {
	col, err := s.collections.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(col)
}

func (s *Server) page(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return fmt.Errorf("%w: page index must be a non-negative integer", common.ErrorValidation)
	}

	img, err := s.collections.ExtractPage(c.UserContext(), c.Params("id"), index)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, PageCacheControl)
	return c.Send(img.Data)
}

func (s *Server) thumbnail(c *fiber.Ctx) error {
	url, err := s.collections.ThumbnailURL(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusFound)
}

func (s *Server) progress(c *fiber.Ctx) error {
	var req ProgressRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fmt.Errorf("%w: malformed body", common.ErrorValidation)
	}
	if req.PageNumber == nil {
		return fmt.Errorf("%w: pageNumber is required", common.ErrorValidation)
	}

	if err := s.collections.UpdateProgress(c.UserContext(), c.Params("id"), *req.PageNumber); err != nil {
		return err
	}
	return c.JSON(StatusResponse{Success: true})
}

func (s *Server) remove(c *fiber.Ctx) error {
	if err := s.collections.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	s.logger.Info(c.UserContext(), "collection removed", "collection_id", c.Params("id"), "by", c.Locals(subjectKey))
	return c.JSON(StatusResponse{Success: true})
}

func (s *Server) resync(c *fiber.Ctx) error {
	res, err := s.collections.Resync(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(res)
}
