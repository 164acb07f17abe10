// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/samber/lo"
)

const (
	DefaultStatsWindow = 50
	MaxStatsWindow     = 500
)

// Stats summarises the outcome of recent runs.
type Stats struct {
	Runs       int                     `json:"runs"`
	ByStatus   map[model.RunStatus]int `json:"by_status"`
	ByStrategy map[string]int          `json:"by_strategy"`
	ByPlan     map[string]int          `json:"by_plan_source"`
}

// NewStats counts runs by status, by winning render strategy and by plan
// source. Runs without a strategy or plan source are not counted there.
func NewStats(runs []*model.ProjectRun) Stats {
	return Stats{
		Runs:     len(runs),
		ByStatus: lo.CountValuesBy(runs, func(r *model.ProjectRun) model.RunStatus { return r.Status }),
		ByStrategy: lo.CountValuesBy(lo.Filter(runs, func(r *model.ProjectRun, _ int) bool { return r.RenderStrategy != "" }),
			func(r *model.ProjectRun) string { return r.RenderStrategy }),
		ByPlan: lo.CountValuesBy(lo.Filter(runs, func(r *model.ProjectRun, _ int) bool { return r.PlanSource != "" }),
			func(r *model.ProjectRun) string { return r.PlanSource }),
	}
}

// Dashboard registers GET /stats?limit=n over the most recent persisted runs.
func Dashboard(r *gin.RouterGroup, h *Handlers) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			if h.Store == nil {
				c.JSON(http.StatusOK, NewStats(nil))
				return
			}
			limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultStatsWindow)))
			if err != nil || limit <= 0 {
				limit = DefaultStatsWindow
			}
			runs, err := h.Store.Recent(c, min(limit, MaxStatsWindow))
			if err != nil {
				slog.ErrorContext(c, "failed to load recent runs", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, NewStats(runs))
		})
	}
}
