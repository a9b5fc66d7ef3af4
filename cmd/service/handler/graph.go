package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/mindarch-ai/mindarch/app/logic/v1"
	"github.com/mindarch-ai/mindarch/app/response"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

type CreateGraphRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
}

func (s *HttpSrv) CreateGraph(c *gin.Context) {
	var req CreateGraphRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graph, err := v1.NewGraphLogic(c, s.Core).CreateGraph(req.Name, req.Description, req.OwnerID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, graph)
}

func (s *HttpSrv) GetGraph(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	graph, err := v1.NewGraphLogic(c, s.Core).GetGraph(graphID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, graph)
}

type UpdateGraphRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *HttpSrv) UpdateGraph(c *gin.Context) {
	var req UpdateGraphRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graphID, _ := c.Params.Get("graph")
	if err := v1.NewGraphLogic(c, s.Core).UpdateGraph(graphID, req.Name, req.Description); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

func (s *HttpSrv) DeleteGraph(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	if err := v1.NewGraphLogic(c, s.Core).DeleteGraph(graphID); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type ListGraphsRequest struct {
	Pagination
	OwnerID  string `json:"owner_id" form:"owner_id"`
	Keywords string `json:"keywords" form:"keywords"`
}

type ListGraphsResponse struct {
	List  []types.KnowledgeGraph `json:"list"`
	Total int64                  `json:"total"`
}

func (s *HttpSrv) ListGraphs(c *gin.Context) {
	var req ListGraphsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	req.Normalize()

	list, total, err := v1.NewGraphLogic(c, s.Core).ListGraphs(types.GetGraphOptions{
		OwnerID:  req.OwnerID,
		Keywords: req.Keywords,
	}, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ListGraphsResponse{
		List:  list,
		Total: total,
	})
}

func (s *HttpSrv) GetGraphQualityReport(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	report, err := v1.NewGraphLogic(c, s.Core).QualityReport(graphID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, report)
}
