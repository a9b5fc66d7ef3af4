package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mindarch-ai/mindarch/app/core"
)

// HttpSrv HTTP服务结构
type HttpSrv struct {
	Core   *core.Core
	Engine *gin.Engine
}

type Pagination struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize"`
}

func (p *Pagination) Normalize() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 || p.PageSize > 100 {
		p.PageSize = 20
	}
}
