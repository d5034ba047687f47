package types

import "github.com/designwheel/engine/internal/workflow"

type InstructorLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetupRequest is the student onboarding form.
type SetupRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	StudentID string `json:"student_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	GroupName string `json:"group_name" validate:"max=120"`
}

type VerdictRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type ScoreRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0,lte=10"`
}

type FeedbackRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type OptionPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	IsSelected  *bool   `json:"is_selected"`
}

func (r OptionPatchRequest) Patch() workflow.OptionPatch {
	return workflow.OptionPatch{Title: r.Title, Description: r.Description, IsSelected: r.IsSelected}
}

type AnnotationRequest struct {
	X     float64 `json:"x" validate:"gte=0,lte=100"`
	Y     float64 `json:"y" validate:"gte=0,lte=100"`
	Color string  `json:"color" validate:"omitempty,hexcolor"`
	Text  string  `json:"text" validate:"max=2000"`
}

func (r AnnotationRequest) Input() workflow.AnnotationInput {
	return workflow.AnnotationInput{X: r.X, Y: r.Y, Color: r.Color, Text: r.Text}
}

type AnnotationTextRequest struct {
	Text string `json:"text" validate:"max=2000"`
}

type ReplaceAnnotationsRequest struct {
	Annotations []workflow.Annotation `json:"annotations" validate:"dive"`
}

type ProfilePatchRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

type AllowListRequest struct {
	IDs string `json:"ids" validate:"required"`
}
