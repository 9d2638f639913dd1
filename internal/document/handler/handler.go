package handler

import (
	"errors"
	"net/http"

	"github.com/codraft/codraft/internal/document/service"
	"github.com/gin-gonic/gin"
)

// ownerFromClaims pulls the authenticated subject out of the gin context when
// the auth middleware ran; anonymous access leaves the owner empty.
func ownerFromClaims(c *gin.Context) string {
	v, ok := c.Get("claims")
	if !ok {
		return ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return sub
}

// RegisterDocumentRoutes wires the document REST surface onto the given group.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc *service.Service) {
	rg.GET("", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Title   string `json:"title" binding:"required"`
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Create(c.Request.Context(), req.Title, req.Content, ownerFromClaims(c))
		if err != nil {
			if errors.Is(err, service.ErrTitleExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "document title already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, d)
	})

	rg.GET("/:id", func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, d)
	})

	// PUT saves new content; a version is appended only when it differs from
	// the last stored version
	rg.PUT("/:id", func(c *gin.Context) {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Save(c.Request.Context(), c.Param("id"), req.Content)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, d)
	})

	rg.GET("/:id/versions", func(c *gin.Context) {
		vs, err := svc.Versions(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, vs)
	})

	// Revert appends the selected historical snapshot as a new version. The
	// updated document goes back to the caller only; the live session is not
	// notified — propagation requires an explicit follow-up save.
	rg.POST("/:id/revert", func(c *gin.Context) {
		var req struct {
			VersionIndex *int `json:"versionIndex" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Revert(c.Request.Context(), c.Param("id"), *req.VersionIndex)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			case errors.Is(err, service.ErrInvalidVersionIndex):
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version index"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, d)
	})
}
