package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/storage"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// ExportSnapshot returns the registry state as ?format=json|yaml
func (h *Handlers) ExportSnapshot(c *gin.Context) {
	codec, err := storage.ParseCodec(c.DefaultQuery("format", "json"), "none")
	if err != nil {
		badRequest(c, err)
		return
	}
	data, err := codec.Marshal(h.registry.Export())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, codec.ContentType(), data)
}

// ImportSnapshot loads a snapshot into an empty registry. Registry admin only.
func (h *Handlers) ImportSnapshot(c *gin.Context) {
	format := storage.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = storage.FormatYAML
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, utils.MaxSnapshotSize+1))
	if err != nil {
		badRequest(c, err)
		return
	}
	if len(body) > utils.MaxSnapshotSize {
		badRequest(c, fmt.Errorf("snapshot exceeds %d bytes", utils.MaxSnapshotSize))
		return
	}

	var snap registry.Snapshot
	if err := (storage.Codec{Format: format}).Unmarshal(body, &snap); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.registry.Import(caller(c), &snap); err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info("snapshot imported",
		zap.String("caller", string(caller(c))),
		zap.Int("modules", len(snap.Modules)),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.registry.Stats()})
}
