package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio/internal/models"
	"portfolio/internal/storage"
)

// The document store accepts any field values; only an edit that changes
// nothing is rejected.
func validUpdate(upd models.PhotoUpdate) error {
	if upd.IsEmpty() {
		return errors.New("nothing to update")
	}
	return nil
}

func (s *Server) handleListPhotos(c *gin.Context) {
	const op = "server.handleListPhotos"

	docs, err := s.photos.ListPhotos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleAddPhoto(c *gin.Context) {
	const op = "server.handleAddPhoto"

	var doc models.PhotoDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.photos.AddPhoto(c.Request.Context(), &doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.notify(c.Request.Context(), "add", doc.ID)
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleUpdatePhoto(c *gin.Context) {
	const op = "server.handleUpdatePhoto"
	id := c.Param("id")

	var upd models.PhotoUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validUpdate(upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := s.photos.UpdatePhoto(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.notify(c.Request.Context(), "update", id)
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeletePhoto(c *gin.Context) {
	const op = "server.handleDeletePhoto"
	id := c.Param("id")

	if err := s.photos.DeletePhoto(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.notify(c.Request.Context(), "delete", id)
	c.Status(http.StatusNoContent)
}
