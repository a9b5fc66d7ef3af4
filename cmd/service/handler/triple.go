package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/mindarch-ai/mindarch/app/logic/v1"
	"github.com/mindarch-ai/mindarch/app/response"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

func (s *HttpSrv) GetTriple(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	tripleID, _ := c.Params.Get("triple")
	triple, err := v1.NewTripleLogic(c, s.Core).GetTriple(graphID, tripleID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, triple)
}

type ListTriplesRequest struct {
	Pagination
	UnitID   string `json:"unit_id" form:"unit_id"`
	SourceID string `json:"source_id" form:"source_id"`
	Status   string `json:"status" form:"status"`
}

type ListTriplesResponse struct {
	List  []types.SemanticTriple `json:"list"`
	Total int64                  `json:"total"`
}

func (s *HttpSrv) ListTriples(c *gin.Context) {
	var req ListTriplesRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	req.Normalize()

	graphID, _ := c.Params.Get("graph")
	opts := types.GetTripleOptions{
		GraphID:  graphID,
		UnitID:   req.UnitID,
		SourceID: req.SourceID,
	}
	if req.Status != "" {
		opts.Status = []types.TripleStatus{types.TripleStatus(req.Status)}
	}

	list, total, err := v1.NewTripleLogic(c, s.Core).ListTriples(opts, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ListTriplesResponse{
		List:  list,
		Total: total,
	})
}

type ReviewTripleRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (s *HttpSrv) ReviewTriple(c *gin.Context) {
	var req ReviewTripleRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graphID, _ := c.Params.Get("graph")
	tripleID, _ := c.Params.Get("triple")
	if err := v1.NewTripleLogic(c, s.Core).ReviewTriple(graphID, tripleID, *req.Accept); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
