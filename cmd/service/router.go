package service

import (
	"github.com/gin-gonic/gin"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/app/response"
	"github.com/mindarch-ai/mindarch/cmd/service/handler"
	"github.com/mindarch-ai/mindarch/cmd/service/middleware"
	"github.com/mindarch-ai/mindarch/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func setupHttpRouter(s *handler.HttpSrv) {
	s.Engine.Use(gin.Recovery())
	s.Engine.Use(response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.Observe(s.Core))

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	apiV1 := s.Engine.Group("/api/v1")
	{
		graphs := apiV1.Group("/graphs")
		{
			graphs.POST("", s.CreateGraph)
			graphs.GET("", s.ListGraphs)
			graphs.GET("/:graph", s.GetGraph)
			graphs.PUT("/:graph", s.UpdateGraph)
			graphs.DELETE("/:graph", s.DeleteGraph)
			graphs.GET("/:graph/report", s.GetGraphQualityReport)

			imports := graphs.Group("/:graph/imports")
			{
				imports.POST("", s.SubmitImport)
				imports.GET("", s.ListImportJobs)
				imports.GET("/:job", s.GetImportJob)
				imports.DELETE("/:job", s.CancelImportJob)
			}

			units := graphs.Group("/:graph/units")
			{
				units.GET("", s.ListUnits)
				units.GET("/:unit", s.GetUnit)
				units.PUT("/:unit", s.UpdateUnit)
				units.POST("/:unit/merge", s.MergeUnits)
				units.DELETE("/:unit", s.ArchiveUnit)
			}

			triples := graphs.Group("/:graph/triples")
			{
				triples.GET("", s.ListTriples)
				triples.GET("/:triple", s.GetTriple)
				triples.POST("/:triple/review", s.ReviewTriple)
			}
		}
	}
}
