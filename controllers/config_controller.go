package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/uploadhub/filestore"
	"github.com/cppla/uploadhub/utils"
)

// ConfigController serves configuration clients need before uploading.
type ConfigController struct {
	table *filestore.Table
}

func NewConfigController(table *filestore.Table) *ConfigController {
	return &ConfigController{table: table}
}

// GetUploadLimits returns every category with its form field, accepted types and byte ceiling.
func (c *ConfigController) GetUploadLimits(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"categories": c.table.Specs()})
}
