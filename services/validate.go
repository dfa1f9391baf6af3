package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cppla/blogthread/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateID reports whether id is a well-formed store identifier (canonical UUID text).
func ValidateID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// NewID allocates a time-ordered identifier for a new document.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func checkPostID(postID string) error {
	if !ValidateID(postID) {
		return newError(ErrInvalidArgument, "Provided postId: %s is invalid.", postID)
	}
	return nil
}

func checkIDs(postID, commentID string) error {
	validPost, validComment := ValidateID(postID), ValidateID(commentID)
	switch {
	case !validPost && !validComment:
		return newError(ErrInvalidArgument, "Provided postId: %s and commentId: %s are both invalid.", postID, commentID)
	case !validPost:
		return newError(ErrInvalidArgument, "Provided postId: %s is invalid.", postID)
	case !validComment:
		return newError(ErrInvalidArgument, "Provided commentId: %s is invalid.", commentID)
	}
	return nil
}

// CommentInput carries the mandatory fields of a new comment or reply.
type CommentInput struct {
	FirstName string `json:"first_name" validate:"required,max=30"`
	LastName  string `json:"last_name" validate:"required,max=30"`
	Text      string `json:"text" validate:"required,max=1000"`
}

// CommentUpdate carries the optional fields of a comment edit; nil means unchanged.
type CommentUpdate struct {
	FirstName *string `json:"first_name" validate:"omitnil,min=1,max=30"`
	LastName  *string `json:"last_name" validate:"omitnil,min=1,max=30"`
	Text      *string `json:"text" validate:"omitnil,min=1,max=1000"`
}

// PostInput carries a new post. Visible accepts anything ParseVisible does; nil means true.
type PostInput struct {
	Title   string      `json:"title" validate:"required,max=255"`
	Body    string      `json:"body" validate:"required"`
	Visible interface{} `json:"visible"`
}

// PostUpdate carries the optional fields of a post edit; nil means unchanged.
type PostUpdate struct {
	Title   *string     `json:"title" validate:"omitnil,min=1,max=255"`
	Body    *string     `json:"body" validate:"omitnil,min=1"`
	Visible interface{} `json:"visible"`
}

func (in *CommentInput) normalize() {
	in.FirstName = utils.SanitizeText(in.FirstName)
	in.LastName = utils.SanitizeText(in.LastName)
	in.Text = utils.SanitizeText(in.Text)
}

func (in *CommentUpdate) normalize() {
	in.FirstName = sanitizeOptional(in.FirstName, utils.SanitizeText)
	in.LastName = sanitizeOptional(in.LastName, utils.SanitizeText)
	in.Text = sanitizeOptional(in.Text, utils.SanitizeText)
}

func (in *PostInput) normalize() {
	in.Title = utils.SanitizeText(in.Title)
	in.Body = utils.Sanitize(in.Body)
}

func (in *PostUpdate) normalize() {
	in.Title = sanitizeOptional(in.Title, utils.SanitizeText)
	in.Body = sanitizeOptional(in.Body, utils.Sanitize)
}

func sanitizeOptional(v *string, clean func(string) string) *string {
	if v == nil {
		return nil
	}
	s := clean(*v)
	return &s
}

// checkFields validates a normalized input and compiles every failure into one message.
func checkFields(prefix string, in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Kind: ErrValidationFailed, Message: prefix, Err: err}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return newError(ErrValidationFailed, "%s: %s", prefix, strings.Join(messages, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("'%s' field (string) must not be empty", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' field (string) must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("'%s' field is invalid", fe.Field())
	}
}

// ParseVisible coerces a decoded JSON value to a boolean: true/false, strings accepted by
// strconv.ParseBool, and the numbers 0 and 1.
func ParseVisible(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, visibleError(v)
		}
		return b, nil
	case float64:
		return numericBool(t, v)
	case int:
		return numericBool(float64(t), v)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, visibleError(v)
		}
		return numericBool(f, v)
	default:
		return false, visibleError(v)
	}
}

func numericBool(f float64, raw interface{}) (bool, error) {
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, visibleError(raw)
}

func visibleError(v interface{}) error {
	return newError(ErrValidationFailed, "'visible' field must be a boolean, got: %v", v)
}
