package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/mindarch-ai/mindarch/app/logic/v1"
	"github.com/mindarch-ai/mindarch/app/response"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

func (s *HttpSrv) GetUnit(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	unitID, _ := c.Params.Get("unit")
	unit, err := v1.NewUnitLogic(c, s.Core).GetUnit(graphID, unitID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, unit)
}

type ListUnitsRequest struct {
	Pagination
	UnitType string `json:"unit_type" form:"unit_type"`
	Status   string `json:"status" form:"status"`
	LiveOnly bool   `json:"live_only" form:"live_only"`
	SourceID string `json:"source_id" form:"source_id"`
	Keywords string `json:"keywords" form:"keywords"`
}

type ListUnitsResponse struct {
	List  []types.KnowledgeUnit `json:"list"`
	Total int64                 `json:"total"`
}

func (s *HttpSrv) ListUnits(c *gin.Context) {
	var req ListUnitsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	req.Normalize()

	graphID, _ := c.Params.Get("graph")
	opts := types.GetUnitOptions{
		GraphID:  graphID,
		LiveOnly: req.LiveOnly,
		SourceID: req.SourceID,
		Keywords: req.Keywords,
	}
	if req.UnitType != "" {
		opts.UnitType = []types.UnitType{types.UnitType(req.UnitType)}
	}
	if req.Status != "" {
		opts.Status = []types.UnitStatus{types.UnitStatus(req.Status)}
	}

	list, total, err := v1.NewUnitLogic(c, s.Core).ListUnits(opts, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ListUnitsResponse{
		List:  list,
		Total: total,
	})
}

type UpdateUnitRequest struct {
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	UnitType      string         `json:"unit_type"`
	CanonicalName string         `json:"canonical_name"`
	Aliases       []string       `json:"aliases"`
	Tags          []string       `json:"tags"`
	Status        string         `json:"status"`
	Knowledge     types.Metadata `json:"knowledge"`
}

func (s *HttpSrv) UpdateUnit(c *gin.Context) {
	var req UpdateUnitRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graphID, _ := c.Params.Get("graph")
	unitID, _ := c.Params.Get("unit")
	err := v1.NewUnitLogic(c, s.Core).UpdateUnit(graphID, unitID, types.UpdateUnitArgs{
		Title:         req.Title,
		Content:       req.Content,
		UnitType:      types.UnitType(req.UnitType),
		CanonicalName: req.CanonicalName,
		Aliases:       req.Aliases,
		Tags:          req.Tags,
		Status:        types.UnitStatus(req.Status),
		Knowledge:     req.Knowledge,
	})
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type MergeUnitsRequest struct {
	SourceID string `json:"source_id" binding:"required"`
}

// MergeUnits merges the request's source unit into the unit addressed by the route.
func (s *HttpSrv) MergeUnits(c *gin.Context) {
	var req MergeUnitsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graphID, _ := c.Params.Get("graph")
	targetID, _ := c.Params.Get("unit")
	target, err := v1.NewUnitLogic(c, s.Core).MergeUnits(graphID, req.SourceID, targetID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, target)
}

func (s *HttpSrv) ArchiveUnit(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	unitID, _ := c.Params.Get("unit")
	if err := v1.NewUnitLogic(c, s.Core).ArchiveUnit(graphID, unitID); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
