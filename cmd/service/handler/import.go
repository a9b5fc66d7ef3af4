package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/mindarch-ai/mindarch/app/logic/v1"
	"github.com/mindarch-ai/mindarch/app/response"
	"github.com/mindarch-ai/mindarch/pkg/errors"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

type SubmitImportRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	Content     string `json:"content" binding:"required"`
	SubmittedBy string `json:"submitted_by"`
}

// SubmitImport accepts either a JSON body or a multipart upload ("file" field).
func (s *HttpSrv) SubmitImport(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			response.APIError(c, errors.New("SubmitImport.FormFile", "invalid request arguments", err).Code(http.StatusBadRequest))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.APIError(c, errors.New("SubmitImport.Open", "invalid request arguments", err).Code(http.StatusBadRequest))
			return
		}
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			response.APIError(c, errors.New("SubmitImport.Read", "internal error", err))
			return
		}

		job, err := v1.NewImportLogic(c, s.Core).SubmitImport(graphID, fileHeader.Filename, raw, c.PostForm("submitted_by"))
		if err != nil {
			response.APIError(c, err)
			return
		}
		response.APISuccess(c, job)
		return
	}

	var req SubmitImportRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	job, err := v1.NewImportLogic(c, s.Core).SubmitImport(graphID, req.FileName, []byte(req.Content), req.SubmittedBy)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, job)
}

func (s *HttpSrv) GetImportJob(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	jobID, _ := c.Params.Get("job")
	job, err := v1.NewImportLogic(c, s.Core).GetJob(graphID, jobID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, job)
}

type ListImportJobsRequest struct {
	Pagination
	// State 多值以逗号分隔
	State string `json:"state" form:"state"`
}

type ListImportJobsResponse struct {
	List  []types.ImportJob `json:"list"`
	Total int64             `json:"total"`
}

func (s *HttpSrv) ListImportJobs(c *gin.Context) {
	var req ListImportJobsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	req.Normalize()

	var states []types.JobState
	for _, raw := range strings.Split(req.State, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		state := types.JobState(raw)
		if !state.Known() {
			response.APIError(c, errors.New("ListImportJobs", "unknown job state", nil).Code(http.StatusBadRequest))
			return
		}
		states = append(states, state)
	}

	graphID, _ := c.Params.Get("graph")
	list, total, err := v1.NewImportLogic(c, s.Core).ListJobs(graphID, states, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ListImportJobsResponse{
		List:  list,
		Total: total,
	})
}

func (s *HttpSrv) CancelImportJob(c *gin.Context) {
	graphID, _ := c.Params.Get("graph")
	jobID, _ := c.Params.Get("job")
	if err := v1.NewImportLogic(c, s.Core).CancelJob(graphID, jobID); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
