package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reportflow/approval-management-api/internal/models"
	"github.com/reportflow/approval-management-api/pkg/utils"
)

// TextRenderer writes a plain-text artifact per submitted report so approvers
// can review the content outside the API
type TextRenderer struct {
	dir    string
	logger *logrus.Logger
}

// NewTextRenderer creates a new TextRenderer writing into dir
func NewTextRenderer(dir string, logger *logrus.Logger) *TextRenderer {
	return &TextRenderer{
		dir:    dir,
		logger: logger,
	}
}

// Render writes the report document and returns its path
func (r *TextRenderer) Render(report *models.Report) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	approvers, err := report.ApproverList()
	if err != nil {
		return "", err
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, "Report ID:  %s\n", report.ReportID)
	fmt.Fprintf(&doc, "Title:      %s\n", report.Title)
	fmt.Fprintf(&doc, "Operator:   %s\n", report.Operator)
	fmt.Fprintf(&doc, "Submitted:  %s\n", utils.FormatTime(utils.MillisToTime(report.CreatedAt)))
	fmt.Fprintf(&doc, "Approvers:  %s\n", strings.Join(approvers, ", "))
	doc.WriteString("\n")
	doc.WriteString(report.Content)
	doc.WriteString("\n")

	// filepath.Base strips any path separators smuggled into the report ID
	name := filepath.Base(report.ReportID) + ".txt"
	path := filepath.Join(r.dir, name)

	if err := os.WriteFile(path, []byte(doc.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report artifact: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"report_id": report.ReportID,
		"path":      path,
	}).Debug("Report artifact written")

	return path, nil
}
