package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type CommentService struct {
	comments repository.CommentRepository
}

func NewCommentService(comments repository.CommentRepository) *CommentService {
	return &CommentService{comments: comments}
}

// Add attaches a comment by who to the post.
func (s *CommentService) Add(ctx context.Context, who auth.Identity, postID uint, text string) (*models.Comment, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	text, err := validation.NormalizeText("text", text, validation.MaxCommentText)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{PostID: postID, AuthorID: who.UserID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("comment", "create").Inc()
	return comment, nil
}
