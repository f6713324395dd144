package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/component"
	"github.com/use-agent/drover/extract"
	"github.com/use-agent/drover/models"
)

func componentError(c *gin.Context, err error) {
	if errors.Is(err, component.ErrNotFound) {
		respondError(c, models.NewServiceError(models.ErrCodeNotFound, "component not found", err))
		return
	}
	respondError(c, err)
}

// captureComponentBody describes a component capture: the element to
// extract plus a name to store it under.
type captureComponentBody struct {
	Name     string            `json:"name" binding:"required"`
	URL      string            `json:"url" binding:"required"`
	Selector string            `json:"selector" binding:"required"`
	Wait     models.WaitPolicy `json:"wait,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

// CaptureComponent returns a handler for POST /api/v1/components: extract
// the element's markup and styles and persist them with their assets.
func CaptureComponent(coord *extract.Coordinator, st *component.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body captureComponentBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		htmlReq := &models.ExtractionRequest{
			URL:      body.URL,
			Kind:     models.KindHTML,
			Selector: body.Selector,
			Wait:     body.Wait,
			Options:  body.Options,
		}
		htmlResult, _, err := coord.Extract(c.Request.Context(), htmlReq, false)
		if err != nil {
			respondError(c, err)
			return
		}

		cssReq := &models.ExtractionRequest{
			URL:      body.URL,
			Kind:     models.KindCSS,
			Selector: body.Selector,
			Wait:     body.Wait,
		}
		cssResult, _, err := coord.Extract(c.Request.Context(), cssReq, false)
		if err != nil {
			respondError(c, err)
			return
		}

		comp, err := st.Save(c.Request.Context(), body.Name, htmlReq,
			htmlResult.Data, cssResult.Data, htmlResult.Metadata)
		if err != nil {
			componentError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "component": comp})
	}
}

// ListComponents returns a handler for GET /api/v1/components.
func ListComponents(st *component.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		comps, err := st.List(c.Request.Context())
		if err != nil {
			componentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "components": comps, "count": len(comps)})
	}
}

// GetComponent returns a handler for GET /api/v1/components/:id.
func GetComponent(st *component.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		comp, err := st.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			componentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "component": comp})
	}
}

// GetComponentFile returns a handler for GET /api/v1/component-files/:fileID,
// serving the stored asset body with its content type.
func GetComponentFile(st *component.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := st.GetFile(c.Request.Context(), c.Param("fileID"))
		if err != nil {
			componentError(c, err)
			return
		}
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(http.StatusOK, contentType, file.Body)
	}
}

// DeleteComponent returns a handler for DELETE /api/v1/components/:id.
func DeleteComponent(st *component.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Delete(c.Request.Context(), c.Param("id")); err != nil {
			componentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
