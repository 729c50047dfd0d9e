package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

// DetailSource supplies the expanded assessment a report is rendered from.
type DetailSource interface {
	Generate(ctx context.Context, task *models.Task) (*DetailedAssessment, error)
}

// Renderer implements services.ReportRenderer.
type Renderer struct {
	details DetailSource
	now     func() time.Time
}

func NewRenderer(details DetailSource) *Renderer {
	return &Renderer{details: details, now: time.Now}
}

type page struct {
	ReportID      string
	AssessedOn    string
	GeneratedOn   string
	High          int
	Medium        int
	Low           int
	Total         int
	Detail        *DetailedAssessment
	Risks         []Risk
	Critical      *Risk
	PaymentRef    string
	PaymentAmount float64
}

func (r *Renderer) Render(ctx context.Context, task *models.Task) (string, error) {
	detail, err := r.details.Generate(ctx, task)
	if err != nil {
		return "", err
	}
	return RenderHTML(task, detail, r.now())
}

// RenderHTML renders a report document without consulting a model.
func RenderHTML(task *models.Task, detail *DetailedAssessment, generatedAt time.Time) (string, error) {
	risks := sortRisks(detail.Risks)
	p := page{
		ReportID:      reportID(task.ID),
		AssessedOn:    task.CreatedAt.UTC().Format("Jan 2, 2006"),
		GeneratedOn:   generatedAt.UTC().Format(time.RFC1123),
		High:          task.HighRiskCount,
		Medium:        task.MediumRiskCount,
		Low:           task.LowRiskCount,
		Total:         task.HighRiskCount + task.MediumRiskCount + task.LowRiskCount,
		Detail:        detail,
		Risks:         risks,
		PaymentRef:    task.PaymentRef,
		PaymentAmount: task.PaymentAmount,
	}
	if len(risks) > 0 && risks[0].Level == "HIGH" {
		p.Critical = &risks[0]
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return buf.String(), nil
}

var levelRank = map[string]int{"HIGH": 0, "MEDIUM": 1, "LOW": 2}

// sortRisks orders findings HIGH to LOW, then by descending CVSS.
func sortRisks(in []Risk) []Risk {
	out := make([]Risk, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := levelRank[out[i].Level], levelRank[out[j].Level]
		if ri != rj {
			return ri < rj
		}
		return cvssValue(out[i]) > cvssValue(out[j])
	})
	return out
}

func cvssValue(r Risk) float64 {
	if r.CVSS == nil {
		return -1
	}
	return *r.CVSS
}

func reportID(taskID string) string {
	id := strings.ReplaceAll(taskID, "-", "")
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "OC-" + strings.ToUpper(id)
}
