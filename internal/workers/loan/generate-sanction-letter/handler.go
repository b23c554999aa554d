package generatesanctionletter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/go-pdf/fpdf"
)

const (
	TaskType = "generate-sanction-letter"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

type Handler struct {
	config *Config
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err})
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.TenureMonths <= 0 || input.Amount <= 0 {
		return nil, apperrors.NewInvalidApplicationError("amount and tenure must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	letter := models.SanctionLetter{
		ApplicantName: input.ApplicantName,
		Amount:        input.Amount,
		TenureMonths:  input.TenureMonths,
		MonthlyEMI:    MonthlyEMI(input.Amount, input.TenureMonths, h.config.AnnualInterestRate),
		FileName:      FileName(input.ApplicantName),
		CreatedAt:     h.now().UTC(),
	}
	letter.Path = filepath.Join(h.config.OutputDir, letter.FileName)

	if err := h.write(letter); err != nil {
		metrics.SanctionLetters.WithLabelValues("failed").Inc()
		h.logger.Error("sanction letter write failed", map[string]interface{}{
			"path":  letter.Path,
			"error": err,
		})
		return nil, apperrors.NewLetterWriteFailedError(letter.Path, err)
	}

	metrics.SanctionLetters.WithLabelValues("generated").Inc()
	h.logger.Info("sanction letter generated", map[string]interface{}{
		"path":         letter.Path,
		"amount":       letter.Amount,
		"tenureMonths": letter.TenureMonths,
	})

	return &Output{Letter: letter}, nil
}

// Lines is the fixed six-line body of a letter.
func (h *Handler) Lines(letter models.SanctionLetter) []string {
	return []string{
		fmt.Sprintf("%s - Personal Loan Sanction Letter", h.config.Brand),
		fmt.Sprintf("Dear %s,", letter.ApplicantName),
		fmt.Sprintf("We are pleased to sanction your personal loan of Rs. %d.", letter.Amount),
		fmt.Sprintf("Tenure: %d months", letter.TenureMonths),
		fmt.Sprintf("Monthly EMI: Rs. %.2f", letter.MonthlyEMI),
		fmt.Sprintf("Thank you for choosing %s.", h.config.Brand),
	}
}

func (h *Handler) write(letter models.SanctionLetter) error {
	if err := os.MkdirAll(h.config.OutputDir, 0o755); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(h.config.Compress)
	pdf.SetTitle(fmt.Sprintf("Sanction letter for %s", letter.ApplicantName), true)
	pdf.SetCreator(h.config.Brand, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, line := range h.Lines(letter) {
		line = tr(line)
		if i == 0 {
			pdf.SetFont("Helvetica", "B", 16)
			pdf.Cell(0, 12, line)
			pdf.Ln(16)
			continue
		}
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, line)
		pdf.Ln(10)
	}

	return pdf.OutputFileAndClose(letter.Path)
}

// FileName maps an applicant name to sanction_letter_<name>.pdf. Anything
// outside [A-Za-z0-9_-] becomes an underscore.
func FileName(applicantName string) string {
	name := unsafeChars.ReplaceAllString(applicantName, "_")
	if name == "" {
		name = "applicant"
	}
	return "sanction_letter_" + name + ".pdf"
}

// Generate is the in-process entry point used by the chat engine.
func (h *Handler) Generate(ctx context.Context, name string, amount int64, tenureMonths int) (models.SanctionLetter, error) {
	out, err := h.execute(ctx, &Input{ApplicantName: name, Amount: amount, TenureMonths: tenureMonths})
	if err != nil {
		return models.SanctionLetter{}, err
	}
	return out.Letter, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
