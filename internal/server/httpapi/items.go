package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/gin-gonic/gin"
)

type itemResponse struct {
	Image    string          `json:"image"`
	Metadata models.Metadata `json:"metadata"`
}

func (h *Handler) listItems(c *gin.Context) {
	ids, err := h.retrieval.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	c.JSON(http.StatusOK, uploadResponse{File: out})
}

func (h *Handler) getItem(c *gin.Context) {
	item, err := h.retrieval.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemResponse{Image: item.FileName, Metadata: item.Metadata})
}

func (h *Handler) media(c *gin.Context) {
	// gin keeps the leading slash of a catch-all parameter
	path := strings.TrimPrefix(c.Param("path"), "/")

	obj, err := h.retrieval.ServeRaw(c.Request.Context(), path)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, nil)
}
