package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/haircarepro/haircarepro/internal/careplan"
	"github.com/haircarepro/haircarepro/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	pageLogin     = "login"
	pageRegister  = "register"
	pageSurvey    = "survey"
	pageResult    = "result"
	pageDashboard = "dashboard"
	pageError     = "error"
)

var pageNames = []string{pageLogin, pageRegister, pageSurvey, pageResult, pageDashboard, pageError}

var templateFuncs = template.FuncMap{
	"instruction": func(plan model.CarePlan, name string) string {
		return plan.Instruction(name, careplan.DefaultInstruction)
	},
}

// Pages holds the parsed HTML pages, each wrapped in the shared layout.
type Pages struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// LoadPages parses the embedded templates.
func LoadPages(logger *slog.Logger) (*Pages, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Pages{pages: pages, logger: logger}, nil
}

// Render writes page with data and status. Rendering happens into a buffer so
// a template failure still yields a clean 500.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := p.pages[name]
	if !ok {
		p.logger.Error("unknown page", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error("page render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	Title   string
	Message string
}

type surveyQuestion struct {
	Key   string
	Label string
}

var surveyQuestions = []surveyQuestion{
	{model.SurveyHairType, "Hair Type"},
	{model.SurveyHairTexture, "Hair Texture"},
	{model.SurveyPorosity, "Hair Porosity"},
	{model.SurveyScalpCondition, "Scalp Condition"},
	{model.SurveyProductUse, "Product Use"},
	{model.SurveyStylingHabits, "Styling Habits"},
	{model.SurveyHairGoals, "Hair Goals"},
	{model.SurveyLifestyle, "Lifestyle"},
}

type surveyView struct {
	Username  string
	Questions []surveyQuestion
}

type resultView struct {
	Username string
	Email    string
	Plan     model.CarePlan
	PDFPath  string
}
