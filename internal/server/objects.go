package server

import (
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"portfolio/internal/objectstore"
)

func objectStatus(err error) int {
	switch {
	case errors.Is(err, objectstore.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePutObject(c *gin.Context) {
	const op = "server.handlePutObject"

	key, err := objectstore.CleanKey(c.Param("path"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxObjectSize)
	defer body.Close()

	ct := c.ContentType()
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := s.objects.Put(c.Request.Context(), key, body, c.Request.ContentLength, ct); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(objectStatus(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": key})
}

func (s *Server) handleObjectURL(c *gin.Context) {
	const op = "server.handleObjectURL"

	url, err := s.objects.URL(c.Request.Context(), c.Query("path"))
	if err != nil {
		c.JSON(objectStatus(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleDeleteObject(c *gin.Context) {
	const op = "server.handleDeleteObject"

	if err := s.objects.Delete(c.Request.Context(), c.Param("path")); err != nil {
		c.JSON(objectStatus(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.log.Info(c.Request.Context(), "object deleted", "path", c.Param("path"))
	c.Status(http.StatusNoContent)
}

const maxPlaceholderSide = 2000

// handlePlaceholder renders a flat grey PNG of the requested size for
// photos that have no stored image.
func (s *Server) handlePlaceholder(c *gin.Context) {
	w, errW := strconv.Atoi(c.Param("w"))
	h, errH := strconv.Atoi(c.Param("h"))
	if errW != nil || errH != nil || w < 1 || h < 1 || w > maxPlaceholderSide || h > maxPlaceholderSide {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid placeholder size"})
		return
	}

	img := imaging.New(w, h, color.NRGBA{R: 200, G: 200, B: 195, A: 255})
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	c.Header("Content-Type", "image/png")
	if err := imaging.Encode(c.Writer, img, imaging.PNG); err != nil {
		s.log.Error(c.Request.Context(), "error encoding placeholder", "err", err)
	}
}
