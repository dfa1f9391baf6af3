package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/blogthread/models"
)

// Clock returns the timestamp stamped on mutations.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// walkResult is a breadth-first snapshot of a comment forest.
type walkResult struct {
	// order holds every loaded same-post comment, level by level.
	order []models.Comment
	// children maps a comment id to the ids of its accepted children, in reply order.
	children map[string][]string
	// roots lists the requested roots that were loaded and belong to the post.
	roots []string
	// foreign lists the requested roots that were loaded but belong to another post.
	foreign []string
}

// walk traverses the forest under roots. Children are discovered through reply lists and
// through the parent_comment index, so a lost reference does not hide a subtree. A visited
// set bounds the walk on a corrupted graph; comments that vanish mid-walk are leaves and
// comments that belong to another post are skipped.
func (s *CommentService) walk(ctx context.Context, postID string, roots []string) (*walkResult, error) {
	w := &walkResult{children: make(map[string][]string)}
	visited := make(map[string]struct{}, len(roots))
	isRoot := make(map[string]struct{}, len(roots))
	frontier := make([]string, 0, len(roots))
	for _, id := range roots {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		isRoot[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for len(frontier) > 0 {
		nodes, err := s.store.FindComments(ctx, frontier)
		if err != nil {
			return nil, storeFailure("load comment tree", err)
		}
		if len(nodes) < len(frontier) {
			s.log.Debug("comments vanished during traversal",
				zap.String("post_id", postID),
				zap.Int("requested", len(frontier)),
				zap.Int("found", len(nodes)))
		}

		loaded := make([]models.Comment, 0, len(nodes))
		for _, c := range nodes {
			if c.ParentPost != postID {
				if _, ok := isRoot[c.ID]; ok {
					w.foreign = append(w.foreign, c.ID)
				}
				s.log.Warn("comment tree crosses post boundary",
					zap.String("post_id", postID),
					zap.String("comment_id", c.ID),
					zap.String("parent_post", c.ParentPost))
				continue
			}
			loaded = append(loaded, c)
			w.order = append(w.order, c)
			if _, ok := isRoot[c.ID]; ok {
				w.roots = append(w.roots, c.ID)
			}
		}
		if len(loaded) == 0 {
			break
		}

		ids := make([]string, len(loaded))
		for i := range loaded {
			ids[i] = loaded[i].ID
		}
		indexed, err := s.store.FindCommentsByParent(ctx, ids)
		if err != nil {
			return nil, storeFailure("load replies", err)
		}
		byParent := make(map[string][]string, len(loaded))
		for _, c := range indexed {
			byParent[c.ParentComment] = append(byParent[c.ParentComment], c.ID)
		}

		var next []string
		queued := make(map[string]struct{})
		for _, c := range loaded {
			candidates := append(append([]string{}, c.ReplyRefs...), byParent[c.ID]...)
			for _, child := range candidates {
				if _, ok := queued[child]; ok {
					continue
				}
				if _, ok := visited[child]; ok {
					s.log.Warn("reply graph revisits a comment",
						zap.String("post_id", postID),
						zap.String("comment_id", c.ID),
						zap.String("reply_id", child))
					continue
				}
				queued[child] = struct{}{}
				next = append(next, child)
				w.children[c.ID] = append(w.children[c.ID], child)
			}
		}
		for _, id := range next {
			visited[id] = struct{}{}
		}
		frontier = next
	}
	return w, nil
}

// ThreadNode is one comment of a thread projection with its nested replies.
type ThreadNode struct {
	models.Comment
	ReplyCount      int           `json:"reply_count"`
	DescendantCount int           `json:"descendant_count"`
	Children        []*ThreadNode `json:"children"`
}

// Thread is the full comment forest of a post.
type Thread struct {
	Post     models.Post   `json:"post"`
	Comments []*ThreadNode `json:"comments"`
	Total    int           `json:"total"`
}

// Thread projects the post's whole comment forest, redacting soft-deleted comments.
func (s *CommentService) Thread(ctx context.Context, level Level, postID string) (*Thread, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, level, postID)
	if err != nil {
		return nil, err
	}
	w, err := s.walk(ctx, postID, post.CommentRefs)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*ThreadNode, len(w.order))
	for _, c := range w.order {
		nodes[c.ID] = &ThreadNode{Comment: c.Redacted(), Children: []*ThreadNode{}}
	}
	// Reverse breadth-first order visits every child before its parent.
	for i := len(w.order) - 1; i >= 0; i-- {
		n := nodes[w.order[i].ID]
		for _, childID := range w.children[n.ID] {
			child, ok := nodes[childID]
			if !ok {
				continue
			}
			n.Children = append(n.Children, child)
			n.DescendantCount += 1 + child.DescendantCount
		}
		n.ReplyCount = len(n.Children)
	}

	t := &Thread{Post: *post, Comments: make([]*ThreadNode, 0, len(w.roots)), Total: len(w.order)}
	for _, id := range w.roots {
		t.Comments = append(t.Comments, nodes[id])
	}
	return t, nil
}

// PostStats summarizes the comment forest of a post.
type PostStats struct {
	PostID          string `json:"post_id"`
	TopLevelCount   int    `json:"top_level_count"`
	TotalComments   int    `json:"total_comments"`
	DeletedComments int    `json:"deleted_comments"`
	MaxDepth        int    `json:"max_depth"`
}

// Stats counts the comments reachable from the post.
func (s *CommentService) Stats(ctx context.Context, level Level, postID string) (*PostStats, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, level, postID)
	if err != nil {
		return nil, err
	}
	w, err := s.walk(ctx, postID, post.CommentRefs)
	if err != nil {
		return nil, err
	}

	st := &PostStats{PostID: postID, TopLevelCount: len(w.roots), TotalComments: len(w.order)}
	depth := make(map[string]int, len(w.order))
	for _, id := range w.roots {
		depth[id] = 1
	}
	for _, c := range w.order {
		if c.Deleted {
			st.DeletedComments++
		}
		d := depth[c.ID]
		if d > st.MaxDepth {
			st.MaxDepth = d
		}
		for _, child := range w.children[c.ID] {
			depth[child] = d + 1
		}
	}
	return st, nil
}
