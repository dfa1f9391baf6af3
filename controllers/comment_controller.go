package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogthread/middleware"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/utils"
)

// CommentController serves the comment tree of a post.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

// ListComments returns the top-level comments of a post.
func (c *CommentController) ListComments(ctx *gin.Context) {
	comments, err := c.comments.List(ctx.Request.Context(), middleware.Level(ctx), ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Comments found", comments)
}

// GetComment returns one comment of a post.
func (c *CommentController) GetComment(ctx *gin.Context) {
	comment, err := c.comments.Get(ctx.Request.Context(), middleware.Level(ctx), ctx.Param("postId"), ctx.Param("commentId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Comment found", comment)
}

// CreateComment adds a top-level comment.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID := ctx.Param("postId")
	var req services.CommentInput
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Create(ctx.Request.Context(), middleware.Level(ctx), postID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePost(postID)
	utils.Respond(ctx, http.StatusCreated,
		fmt.Sprintf("New comment successfully created. Comment Id: %s", comment.ID), comment)
}

// CreateReply adds a reply to the comment in the path.
func (c *CommentController) CreateReply(ctx *gin.Context) {
	postID := ctx.Param("postId")
	var req services.CommentInput
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Reply(ctx.Request.Context(), middleware.Level(ctx), postID, ctx.Param("commentId"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePost(postID)
	utils.Respond(ctx, http.StatusCreated,
		fmt.Sprintf("New comment successfully created. Comment Id: %s", comment.ID), comment)
}

// UpdateComment edits the fields present in the body.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	commentID := ctx.Param("commentId")
	var req services.CommentUpdate
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Update(ctx.Request.Context(), middleware.Level(ctx), ctx.Param("postId"), commentID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, fmt.Sprintf("Comment successfully updated at: %s.", commentID), comment)
}

// DeleteComment soft-deletes by default; ?mode=hard purges the whole reply subtree.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	postID := ctx.Param("postId")
	commentID := ctx.Param("commentId")
	level := middleware.Level(ctx)

	switch strings.ToLower(ctx.DefaultQuery("mode", "soft")) {
	case "soft":
		comment, err := c.comments.SoftDelete(ctx.Request.Context(), level, postID, commentID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		utils.Success(ctx, fmt.Sprintf("Comment successfully deleted at: %s.", commentID), comment)
	case "hard":
		report, err := c.comments.Purge(ctx.Request.Context(), level, postID, commentID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		invalidatePost(postID)
		utils.Success(ctx, fmt.Sprintf("Comment successfully purged at: %s.", commentID), report)
	default:
		utils.Error(ctx, http.StatusBadRequest, "mode must be 'soft' or 'hard'")
	}
}

// GetThread returns the nested comment forest of a post.
func (c *CommentController) GetThread(ctx *gin.Context) {
	thread, err := c.comments.Thread(ctx.Request.Context(), middleware.Level(ctx), ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Thread found", thread)
}
