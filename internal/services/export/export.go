// Package services формирует библиографию по результатам поиска
// в форматах LaTeX и Word.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/models"
)

// Ошибки экспорта.
var (
	ErrPremiumRequired   = errors.New("export requires premium access")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Поддерживаемые форматы.
const (
	FormatLaTeX = "latex"
	FormatWord  = "word"
)

// EntitlementChecker вычисляет права пользователя.
type EntitlementChecker interface {
	Check(ctx context.Context, userUID string) (models.Entitlement, error)
}

// Document — готовый к выдаче файл библиографии.
type Document struct {
	Filename    string
	ContentType string
	Body        string
}

// ExportService собирает библиографические документы.
type ExportService struct {
	entitlements EntitlementChecker
	log          *slog.Logger
}

// NewExportService создает новый экземпляр ExportService.
func NewExportService(entitlements EntitlementChecker, log *slog.Logger) *ExportService {
	return &ExportService{entitlements: entitlements, log: log}
}

// Export строит документ в запрошенном формате. Доступно только
// привилегированным пользователям.
func (s *ExportService) Export(ctx context.Context, userUID, format, topic string, keywords []string, papers []models.Paper) (*Document, error) {
	const op = "services.ExportService.Export"

	ent, err := s.entitlements.Check(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.Features.Export {
		return nil, ErrPremiumRequired
	}

	now := time.Now().UTC()
	switch format {
	case FormatLaTeX:
		return &Document{
			Filename:    exportFilename(topic, ".tex"),
			ContentType: "application/x-latex",
			Body:        BuildLaTeX(topic, keywords, papers, now),
		}, nil
	case FormatWord:
		return &Document{
			Filename:    exportFilename(topic, ".doc"),
			ContentType: "application/msword",
			Body:        BuildWord(topic, keywords, papers, now),
		}, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// APACitation возвращает библиографическую запись в стиле APA.
// Для статей без года выводится n.d.
func APACitation(p models.Paper) string {
	year := "n.d."
	if p.Year != nil {
		year = fmt.Sprintf("%d", *p.Year)
	}
	return fmt.Sprintf("Author, A. (%s). %s. Retrieved from %s", year, p.Title, p.URL)
}

// BuildLaTeX собирает документ с thebibliography по всем статьям.
func BuildLaTeX(topic string, keywords []string, papers []models.Paper, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, `\documentclass{article}
\usepackage[utf8]{inputenc}
\usepackage{hyperref}

\title{Research Bibliography: %s}
\author{}
\date{%s}

\begin{document}

\maketitle

\section{Research Topic}
%s

\section{Keywords}
%s

\section{References}
\begin{thebibliography}{%d}

`, escapeLaTeX(topic), now.Format("2006-01-02"), escapeLaTeX(topic),
		escapeLaTeX(keywordsLine(keywords)), len(papers))

	for i, p := range papers {
		fmt.Fprintf(&b, "\\bibitem{ref%d}\n%s\n\n", i+1, escapeLaTeX(APACitation(p)))
	}

	fmt.Fprintf(&b, `\end{thebibliography}

\section{Summary}
Total papers found: %d

\end{document}
`, len(papers))
	return b.String()
}

// BuildWord собирает простой текстовый документ для Word.
func BuildWord(topic string, keywords []string, papers []models.Paper, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research Bibliography: %s\n", topic)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Research Topic:\n%s\n\n", topic)
	fmt.Fprintf(&b, "Keywords:\n%s\n\n", keywordsLine(keywords))
	b.WriteString("References (APA Style):\n\n")

	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, APACitation(p))
	}

	fmt.Fprintf(&b, "\nTotal papers: %d", len(papers))
	return b.String()
}

func keywordsLine(keywords []string) string {
	if len(keywords) == 0 {
		return "None specified"
	}
	return strings.Join(keywords, ", ")
}

func exportFilename(topic, ext string) string {
	name := strings.Join(strings.Fields(strings.TrimSpace(topic)), "_")
	if name == "" {
		name = "bibliography"
	}
	return "bibliography_" + name + ext
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

func escapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}
