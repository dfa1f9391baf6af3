package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogthread/middleware"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/utils"
)

const (
	postCachePrefix     = "cache:posts:"
	postListCachePrefix = postCachePrefix + "list:"
)

func postListCacheKey(level services.Level) string {
	return postListCachePrefix + audience(level)
}

func postDetailCacheKey(postID string, level services.Level) string {
	return postCachePrefix + "detail:" + postID + ":" + audience(level)
}

// audience folds anonymous and invalid callers together since they see the same content.
func audience(level services.Level) string {
	if level.IsAuthor() {
		return "author"
	}
	return "reader"
}

// invalidatePost drops the cached list and every cached view of one post.
func invalidatePost(postID string) {
	utils.InvalidateByPrefixes(postListCachePrefix, postCachePrefix+"detail:"+postID+":")
}

// PostController serves the post repository.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns every post, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	cacheKey := postListCacheKey(middleware.Level(ctx))
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	posts, err := p.posts.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	resp := utils.JSONResponse{Status: http.StatusOK, Message: "Posts found", Data: posts}
	utils.CacheSetJSON(cacheKey, resp, 0)
	ctx.JSON(http.StatusOK, resp)
}

// GetPost returns a post; hidden posts are only visible to authors.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("postId")
	level := middleware.Level(ctx)
	cacheKey := postDetailCacheKey(postID, level)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	post, err := p.posts.Get(ctx.Request.Context(), level, postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	resp := utils.JSONResponse{Status: http.StatusOK, Message: "Post found", Data: post}
	utils.CacheSetJSON(cacheKey, resp, 0)
	ctx.JSON(http.StatusOK, resp)
}

// CreatePost stores a new post.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.PostInput
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), middleware.Level(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(postListCachePrefix)
	utils.Respond(ctx, http.StatusCreated, fmt.Sprintf("New post successfully created. Post Id: %s", post.ID), post)
}

// UpdatePost applies a partial update.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID := ctx.Param("postId")
	var req services.PostUpdate
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), middleware.Level(ctx), postID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePost(postID)
	utils.Success(ctx, fmt.Sprintf("Post successfully updated at: %s.", postID), post)
}

// DeletePost removes the post with its whole comment forest.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("postId")
	report, err := p.posts.Delete(ctx.Request.Context(), middleware.Level(ctx), postID)
	if report != nil {
		invalidatePost(postID)
	}
	if err != nil {
		if report != nil {
			utils.Respond(ctx, statusOf(err), services.Message(err), report)
			return
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, fmt.Sprintf("Post successfully deleted at: %s.", postID), report)
}
