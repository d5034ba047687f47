package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// Export placeholders for allow-listed students without a profile or project.
const (
	NotRegistered    = "Not Registered"
	NoProject        = "No Project"
	StatusNotStarted = "N/A"
)

// ExportService renders the class results sheet.
type ExportService interface {
	// WriteResultsCSV writes one row per allow-listed student, ordered by id.
	WriteResultsCSV(ctx context.Context, w io.Writer) error
	// Filename names the sheet for the given day.
	Filename(day time.Time) string
}

type exportService struct {
	users     repository.UserRepository
	allowList repository.AllowListRepository
	projects  repository.ProjectRepository
}

func NewExportService(users repository.UserRepository, allowList repository.AllowListRepository, projects repository.ProjectRepository) ExportService {
	return &exportService{users: users, allowList: allowList, projects: projects}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) Filename(day time.Time) string {
	return "design_thinker_results_" + day.Format("2006-01-02") + ".csv"
}

// ResultsHeader is the first row of the results sheet.
func ResultsHeader() []string {
	h := []string{"Student ID", "Name", "Email", "Project Title", "Total Score"}
	for _, info := range workflow.Registry() {
		h = append(h, info.Label+" Status", info.Label+" Score")
	}
	return h
}

func (s *exportService) WriteResultsCSV(ctx context.Context, w io.Writer) error {
	var (
		ids      []string
		users    []models.User
		projects []*workflow.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ids, err = s.allowList.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.users.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.projects.List(gctx, repository.ProjectFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	byStudent := make(map[string]models.User, len(users))
	for _, u := range users {
		byStudent[u.StudentID] = u
	}
	// projects arrive newest first; the first one seen per student wins
	latest := make(map[string]*workflow.Project, len(projects))
	for _, p := range projects {
		if _, ok := latest[p.StudentID]; !ok {
			latest[p.StudentID] = p
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader()); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "write csv header failed")
	}
	for _, id := range ids {
		if err := cw.Write(resultRow(id, byStudent, latest)); err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "write csv row failed")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "flush csv failed")
	}
	logger.L().Info("results exported", zap.Int("rows", len(ids)))
	return nil
}

func resultRow(id string, users map[string]models.User, projects map[string]*workflow.Project) []string {
	name, email := NotRegistered, ""
	if u, ok := users[id]; ok {
		name, email = u.Name, u.Email
	}
	title, total := NoProject, "0"
	p := projects[id]
	if p != nil {
		title, total = p.Title, formatNumber(p.TotalScore)
	}
	row := []string{id, name, email, title, total}
	for _, s := range workflow.Stages() {
		status, score := StatusNotStarted, "0"
		if p != nil {
			if sd, ok := p.Stages[s]; ok {
				status, score = string(sd.Status), formatNumber(sd.Score)
			}
		}
		row = append(row, status, score)
	}
	return row
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
