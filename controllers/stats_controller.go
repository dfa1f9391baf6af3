package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogthread/middleware"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/utils"
)

// StatsController reports comment counts for a post.
type StatsController struct {
	comments *services.CommentService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(comments *services.CommentService) *StatsController {
	return &StatsController{comments: comments}
}

// GetPostStats returns top-level, total and soft-deleted comment counts plus reply depth.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	stats, err := s.comments.Stats(ctx.Request.Context(), middleware.Level(ctx), ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Post stats found", stats)
}
