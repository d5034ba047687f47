package workflow

import (
	"math"
	"strconv"
	"strings"

	appErr "github.com/designwheel/engine/pkg/errors"
)

// OptionPatch updates the provided fields of an option.
type OptionPatch struct {
	Title       *string
	Description *string
	IsSelected  *bool
}

// AssetInput describes content already written to the asset store.
type AssetInput struct {
	Name        string
	ContentType string
	Size        int64
	Ref         string
}

// AnnotationInput is a new marker. An empty Color gets DefaultAnnotationColor.
type AnnotationInput struct {
	X     float64
	Y     float64
	Color string
	Text  string
}

// studentStage returns a stage the student may edit on an active project.
func (p *Project) studentStage(s StageType, op string) (*StageData, error) {
	if err := p.requireActive(); err != nil {
		return nil, err
	}
	sd, err := p.Stage(s)
	if err != nil {
		return nil, err
	}
	if !sd.Status.editable() {
		return nil, invalidTransition(s, sd.Status, op)
	}
	return sd, nil
}

func (sd *StageData) option(id string) (*SubmissionOption, error) {
	for i := range sd.Options {
		if sd.Options[i].ID == id {
			return &sd.Options[i], nil
		}
	}
	return nil, appErr.Newf(appErr.CodeNotFound, "option %q not found in stage %s", id, sd.Type)
}

func (o *SubmissionOption) asset(id string) (*FileAsset, error) {
	for i := range o.Assets {
		if o.Assets[i].ID == id {
			return &o.Assets[i], nil
		}
	}
	return nil, appErr.Newf(appErr.CodeNotFound, "asset %q not found", id)
}

func (p *Project) findAsset(s StageType, optionID, assetID string) (*FileAsset, error) {
	sd, err := p.Stage(s)
	if err != nil {
		return nil, err
	}
	opt, err := sd.option(optionID)
	if err != nil {
		return nil, err
	}
	return opt.asset(assetID)
}

// AddOption appends an empty option titled after its position.
func (p *Project) AddOption(s StageType) (SubmissionOption, error) {
	sd, err := p.studentStage(s, "add option to")
	if err != nil {
		return SubmissionOption{}, err
	}
	opt := SubmissionOption{
		ID:     NewID(),
		Title:  optionTitle(len(sd.Options) + 1),
		Assets: []FileAsset{},
	}
	sd.Options = append(sd.Options, opt)
	return opt, nil
}

func optionTitle(n int) string {
	return "Option " + strconv.Itoa(n)
}

// UpdateOption applies patch to one option.
func (p *Project) UpdateOption(s StageType, optionID string, patch OptionPatch) (SubmissionOption, error) {
	sd, err := p.studentStage(s, "edit option in")
	if err != nil {
		return SubmissionOption{}, err
	}
	opt, err := sd.option(optionID)
	if err != nil {
		return SubmissionOption{}, err
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return SubmissionOption{}, appErr.New(appErr.CodeInvalid, "option title must not be empty")
		}
		opt.Title = t
	}
	if patch.Description != nil {
		opt.Description = *patch.Description
	}
	if patch.IsSelected != nil {
		opt.IsSelected = *patch.IsSelected
	}
	return opt.clone(), nil
}

// AttachAsset records stored content against an option.
func (p *Project) AttachAsset(s StageType, optionID string, in AssetInput) (FileAsset, error) {
	sd, err := p.studentStage(s, "attach asset to")
	if err != nil {
		return FileAsset{}, err
	}
	opt, err := sd.option(optionID)
	if err != nil {
		return FileAsset{}, err
	}
	if strings.TrimSpace(in.Name) == "" || in.Ref == "" {
		return FileAsset{}, appErr.New(appErr.CodeInvalid, "asset name and ref are required")
	}
	a := FileAsset{
		ID:          NewID(),
		Name:        strings.TrimSpace(in.Name),
		Kind:        ClassifyContentType(in.ContentType),
		ContentType: in.ContentType,
		Size:        in.Size,
		Ref:         in.Ref,
		Annotations: []Annotation{},
	}
	opt.Assets = append(opt.Assets, a)
	return a, nil
}

// RemoveAsset detaches an asset and, with it, all of its annotations. The
// returned asset carries the Ref so the caller can release stored content.
func (p *Project) RemoveAsset(s StageType, optionID, assetID string) (FileAsset, error) {
	sd, err := p.studentStage(s, "remove asset from")
	if err != nil {
		return FileAsset{}, err
	}
	opt, err := sd.option(optionID)
	if err != nil {
		return FileAsset{}, err
	}
	for i, a := range opt.Assets {
		if a.ID == assetID {
			opt.Assets = append(opt.Assets[:i], opt.Assets[i+1:]...)
			return a, nil
		}
	}
	return FileAsset{}, appErr.Newf(appErr.CodeNotFound, "asset %q not found", assetID)
}

func validPercent(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

func newAnnotation(in AnnotationInput) (Annotation, error) {
	if !validPercent(in.X) || !validPercent(in.Y) {
		return Annotation{}, appErr.New(appErr.CodeInvalid, "annotation coordinates must be percentages between 0 and 100")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = DefaultAnnotationColor
	}
	return Annotation{ID: NewID(), X: in.X, Y: in.Y, Color: color, Text: in.Text}, nil
}

// AddAnnotation pins a new marker on an asset.
func (p *Project) AddAnnotation(s StageType, optionID, assetID string, in AnnotationInput) (Annotation, error) {
	a, err := p.findAsset(s, optionID, assetID)
	if err != nil {
		return Annotation{}, err
	}
	ann, err := newAnnotation(in)
	if err != nil {
		return Annotation{}, err
	}
	a.Annotations = append(a.Annotations, ann)
	return ann, nil
}

// UpdateAnnotationText changes the note attached to a marker.
func (p *Project) UpdateAnnotationText(s StageType, optionID, assetID, annotationID, text string) (Annotation, error) {
	a, err := p.findAsset(s, optionID, assetID)
	if err != nil {
		return Annotation{}, err
	}
	for i := range a.Annotations {
		if a.Annotations[i].ID == annotationID {
			a.Annotations[i].Text = text
			return a.Annotations[i], nil
		}
	}
	return Annotation{}, appErr.Newf(appErr.CodeNotFound, "annotation %q not found", annotationID)
}

// RemoveAnnotation deletes one marker.
func (p *Project) RemoveAnnotation(s StageType, optionID, assetID, annotationID string) error {
	a, err := p.findAsset(s, optionID, assetID)
	if err != nil {
		return err
	}
	for i := range a.Annotations {
		if a.Annotations[i].ID == annotationID {
			a.Annotations = append(a.Annotations[:i], a.Annotations[i+1:]...)
			return nil
		}
	}
	return appErr.Newf(appErr.CodeNotFound, "annotation %q not found", annotationID)
}

// ReplaceAnnotations swaps the whole marker list of an asset. Entries without
// an ID get one; all entries are validated before anything changes.
func (p *Project) ReplaceAnnotations(s StageType, optionID, assetID string, anns []Annotation) ([]Annotation, error) {
	a, err := p.findAsset(s, optionID, assetID)
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, len(anns))
	for _, in := range anns {
		ann, err := newAnnotation(AnnotationInput{X: in.X, Y: in.Y, Color: in.Color, Text: in.Text})
		if err != nil {
			return nil, err
		}
		if in.ID != "" {
			ann.ID = in.ID
		}
		out = append(out, ann)
	}
	a.Annotations = out
	return append([]Annotation(nil), out...), nil
}

// ToggleChecklistItem flips the completion flag of one checklist item.
func (p *Project) ToggleChecklistItem(s StageType, itemID string) (ChecklistItem, error) {
	sd, err := p.studentStage(s, "edit checklist of")
	if err != nil {
		return ChecklistItem{}, err
	}
	for i := range sd.Checklist {
		if sd.Checklist[i].ID == itemID {
			sd.Checklist[i].Completed = !sd.Checklist[i].Completed
			return sd.Checklist[i], nil
		}
	}
	return ChecklistItem{}, appErr.Newf(appErr.CodeNotFound, "checklist item %q not found", itemID)
}

// UpdateFeedback replaces the instructor's written feedback on a stage.
func (p *Project) UpdateFeedback(s StageType, text string) error {
	sd, err := p.Stage(s)
	if err != nil {
		return err
	}
	sd.InstructorFeedback = text
	return nil
}

// UpdateScore stores a stage score and refreshes the total. The value is kept
// as given; TotalScore clamps it.
func (p *Project) UpdateScore(s StageType, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return appErr.New(appErr.CodeInvalid, "score must be a finite number")
	}
	sd, err := p.Stage(s)
	if err != nil {
		return err
	}
	sd.Score = score
	p.Recompute()
	return nil
}

// SetActive starts or stops a project. Stopped projects reject student edits.
func (p *Project) SetActive(active bool) { p.IsActive = active }

// RefreshStudentName keeps the denormalized name in step with the profile.
func (p *Project) RefreshStudentName(name string) {
	if n := strings.TrimSpace(name); n != "" {
		p.StudentName = n
	}
}
