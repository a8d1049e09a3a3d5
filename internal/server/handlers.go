package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/reliefmesh/internal/logger"
	"github.com/Faultbox/reliefmesh/internal/relief"
	"github.com/Faultbox/reliefmesh/internal/store"
)

// convertForm carries /convert parameters from a form or JSON body.
// Absent fields keep the server defaults.
type convertForm struct {
	ImagePath      *string  `form:"image_path" json:"image_path"`
	DetailLevel    *float64 `form:"detail_level" json:"detail_level"`
	ModelWidth     *float64 `form:"model_width" json:"model_width"`
	ModelThickness *float64 `form:"model_thickness" json:"model_thickness"`
	BaseThickness  *float64 `form:"base_thickness" json:"base_thickness"`
	SkipDepth      *bool    `form:"skip_depth" json:"skip_depth"`
	InvertDepth    *bool    `form:"invert_depth" json:"invert_depth"`
}

func (f *convertForm) apply(req *relief.Request) {
	if f.ImagePath != nil {
		req.ImagePath = *f.ImagePath
	}
	if f.DetailLevel != nil {
		req.DetailLevel = *f.DetailLevel
	}
	if f.ModelWidth != nil {
		req.ModelWidth = *f.ModelWidth
	}
	if f.ModelThickness != nil {
		req.ModelThickness = *f.ModelThickness
	}
	if f.BaseThickness != nil {
		req.BaseThickness = *f.BaseThickness
	}
	if f.SkipDepth != nil {
		req.SkipDepth = *f.SkipDepth
	}
	if f.InvertDepth != nil {
		req.InvertDepth = *f.InvertDepth
	}
}

func (s *Server) convert(c *gin.Context) {
	var form convertForm
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": relief.StatusFailed, "error": err.Error()})
			return
		}
	}

	req := s.opts.Defaults
	req.Image = nil
	form.apply(&req)

	// An uploaded image takes the place of image_path and is removed
	// once the conversion is done.
	if file, err := c.FormFile("image"); err == nil {
		if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": relief.StatusFailed, "error": err.Error()})
			return
		}
		path := filepath.Join(s.opts.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
		if err := c.SaveUploadedFile(file, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": relief.StatusFailed, "error": err.Error()})
			return
		}
		defer func() {
			if err := os.Remove(path); err != nil {
				logger.Warn("failed to remove upload", zap.String("path", path), zap.Error(err))
			}
		}()
		req.ImagePath = path
	}

	res := s.conv.Convert(c.Request.Context(), req)
	c.JSON(statusFor(res), res)
}

// statusFor maps a result to an HTTP status code.
func statusFor(res relief.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case relief.KindInputNotFound, relief.KindInvalidInputSpecifier, relief.KindInvalidImage,
		relief.KindInvalidGridDimensions, relief.KindInvalidSizeParameter:
		return http.StatusUnprocessableEntity
	case relief.KindRemoteFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) artifact(c *gin.Context) {
	name := c.Param("name")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact name"})
		return
	}

	path := filepath.Join(s.opts.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) listConversions(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "records are disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.List(c.Request.Context(), store.ListOptions{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logger.Error("listing conversions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing conversions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": items, "count": len(items)})
}

func (s *Server) getConversion(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "records are disabled"})
		return
	}

	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Error("loading conversion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading conversion failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
