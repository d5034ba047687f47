package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	appErr "github.com/designwheel/engine/pkg/errors"
)

// NewID generates identifiers for projects, options, assets and annotations.
// Tests may swap it for a deterministic source.
var NewID = uuid.NewString

// DefaultClassID is used when a project is created without a class.
const DefaultClassID = "CLASS-101"

// DefaultAnnotationColor is applied to annotations created without a color.
const DefaultAnnotationColor = "#EF4444"

// AssetKind is derived from an upload's content type.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetPDF   AssetKind = "pdf"
	AssetDoc   AssetKind = "doc"
)

// ClassifyContentType maps a MIME type onto the three kinds the UI renders.
func ClassifyContentType(contentType string) AssetKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image"):
		return AssetImage
	case strings.Contains(ct, "pdf"):
		return AssetPDF
	default:
		return AssetDoc
	}
}

// Annotation is a marker pinned to an asset; X and Y are percentages of the
// rendered asset's width and height.
type Annotation struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Text  string  `json:"text,omitempty"`
}

// FileAsset references stored content; Ref is the storage key, never the bytes.
type FileAsset struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        AssetKind    `json:"kind"`
	ContentType string       `json:"content_type"`
	Size        int64        `json:"size"`
	Ref         string       `json:"ref"`
	Annotations []Annotation `json:"annotations"`
}

// SubmissionOption is one alternative the student proposes within a stage.
type SubmissionOption struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Assets      []FileAsset `json:"assets"`
	IsSelected  bool        `json:"is_selected"`
}

// ChecklistItem is a requirement the student ticks off.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// StageData is the per-stage state stored inside a project.
type StageData struct {
	Type               StageType          `json:"type"`
	Status             StageStatus        `json:"status"`
	Options            []SubmissionOption `json:"options"`
	Checklist          []ChecklistItem    `json:"checklist"`
	InstructorFeedback string             `json:"instructor_feedback"`
	Score              float64            `json:"score"`
	Weight             float64            `json:"weight"`
}

// StageMap keys stage state by stage identifier.
type StageMap map[StageType]*StageData

// Project is the aggregate root: one student's journey through all six stages.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	GroupName   string    `json:"group_name"`
	ClassID     string    `json:"class_id"`
	IsActive    bool      `json:"is_active"`
	Stages      StageMap  `json:"stages"`
	TotalScore  float64   `json:"total_score"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProjectInput carries the setup form fields.
type NewProjectInput struct {
	Title       string
	StudentID   string
	StudentName string
	GroupName   string
	ClassID     string
}

// NewProject builds a fresh aggregate with only the first stage open.
func NewProject(in NewProjectInput, now time.Time) *Project {
	classID := strings.TrimSpace(in.ClassID)
	if classID == "" {
		classID = DefaultClassID
	}
	p := &Project{
		ID:          NewID(),
		Title:       strings.TrimSpace(in.Title),
		StudentID:   strings.TrimSpace(in.StudentID),
		StudentName: strings.TrimSpace(in.StudentName),
		GroupName:   strings.TrimSpace(in.GroupName),
		ClassID:     classID,
		IsActive:    true,
		Stages:      DefaultStages(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Recompute()
	return p
}

// DefaultStages returns a complete stage map in its initial state.
func DefaultStages() StageMap {
	m := make(StageMap, len(registry))
	for i, info := range registry {
		status := StatusLocked
		if i == 0 {
			status = StatusInProgress
		}
		m[info.Type] = &StageData{
			Type:    info.Type,
			Status:  status,
			Options: []SubmissionOption{},
			Checklist: []ChecklistItem{
				{ID: "1", Text: "Requirement 1 met"},
				{ID: "2", Text: "Requirement 2 met"},
			},
			Weight: info.DefaultWeight,
		}
	}
	return m
}

// Stage returns the live state of stage s.
func (p *Project) Stage(s StageType) (*StageData, error) {
	sd, ok := p.Stages[s]
	if !ok || sd == nil {
		return nil, appErr.Newf(appErr.CodeNotFound, "stage %q not found", s)
	}
	return sd, nil
}

// Recompute refreshes the derived total score.
func (p *Project) Recompute() {
	p.TotalScore = TotalScore(p.Stages)
}

// Clone returns a deep copy so that a failed mutation can be discarded.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Stages = make(StageMap, len(p.Stages))
	for k, sd := range p.Stages {
		if sd == nil {
			continue
		}
		cp.Stages[k] = sd.clone()
	}
	return &cp
}

func (sd *StageData) clone() *StageData {
	cp := *sd
	cp.Checklist = append([]ChecklistItem(nil), sd.Checklist...)
	cp.Options = make([]SubmissionOption, len(sd.Options))
	for i, opt := range sd.Options {
		cp.Options[i] = opt.clone()
	}
	return &cp
}

func (o SubmissionOption) clone() SubmissionOption {
	o.Assets = append([]FileAsset(nil), o.Assets...)
	for i := range o.Assets {
		o.Assets[i].Annotations = append([]Annotation(nil), o.Assets[i].Annotations...)
	}
	return o
}

// Summary is the instructor-facing row for a project.
type Summary struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	StudentID   string                    `json:"student_id"`
	StudentName string                    `json:"student_name"`
	GroupName   string                    `json:"group_name"`
	IsActive    bool                      `json:"is_active"`
	TotalScore  float64                   `json:"total_score"`
	Statuses    map[StageType]StageStatus `json:"statuses"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// Summarize reduces p to its list row.
func (p *Project) Summarize() Summary {
	st := make(map[StageType]StageStatus, len(p.Stages))
	for k, sd := range p.Stages {
		st[k] = sd.Status
	}
	return Summary{
		ID:          p.ID,
		Title:       p.Title,
		StudentID:   p.StudentID,
		StudentName: p.StudentName,
		GroupName:   p.GroupName,
		IsActive:    p.IsActive,
		TotalScore:  p.TotalScore,
		Statuses:    st,
		UpdatedAt:   p.UpdatedAt,
	}
}
