package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medidor/internal/models"
	"medidor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

// ReportService renders the measurement report for a project, stores it
// in the documents bucket, records the URL on the project and
// optionally emails the document.
type ReportService interface {
	GenerateAndSend(ctx context.Context, projectID uuid.UUID, emailTo string) (string, error)
}

type reportService struct {
	projects     repositories.ProjectRepository
	measurements repositories.MeasurementRepository
	images       repositories.ImageRepository
	profiles     repositories.ProfileRepository
	storage      StorageService
	email        EmailService
	docsBucket   string
	httpClient   *http.Client
}

func NewReportService(
	projects repositories.ProjectRepository,
	measurements repositories.MeasurementRepository,
	images repositories.ImageRepository,
	profiles repositories.ProfileRepository,
	storage StorageService,
	email EmailService,
	docsBucket string,
) ReportService {
	return &reportService{
		projects:     projects,
		measurements: measurements,
		images:       images,
		profiles:     profiles,
		storage:      storage,
		email:        email,
		docsBucket:   docsBucket,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *reportService) GenerateAndSend(ctx context.Context, projectID uuid.UUID, emailTo string) (string, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load project: %w", err)
	}

	measurements, err := s.measurements.ListByProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load measurements: %w", err)
	}

	images, err := s.images.ListByProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load images: %w", err)
	}

	preparer := "N/A"
	if profile, err := s.profiles.GetByUserID(ctx, project.UserID); err == nil && profile.FullName != "" {
		preparer = profile.FullName
	}

	pdfBytes, err := s.render(ctx, project, preparer, measurements, images)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	fileName := fmt.Sprintf("Mediciones_%s_%d.pdf", sanitizeFileName(project.Location), time.Now().UnixMilli())
	objectName := fmt.Sprintf("%s/reports/%s", project.ID, fileName)

	url, err := s.storage.Upload(ctx, s.docsBucket, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf")
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}

	if err := s.projects.SetLastReportURL(ctx, projectID, url); err != nil {
		return "", fmt.Errorf("record report url: %w", err)
	}

	// The report is stored either way; a failed send only gets logged.
	if emailTo != "" {
		subject := fmt.Sprintf("Informe de Mediciones - %s", project.Location)
		body := fmt.Sprintf("Hola,\n\nAdjuntamos el informe de mediciones del proyecto \"%s\".\n\nSaludos,\nEquipo Medidor", project.Location)
		if err := s.email.Send(emailTo, subject, body, fileName, pdfBytes); err != nil {
			log.Printf("Failed to email report for project %s to %s: %v", projectID, emailTo, err)
		}
	}

	return url, nil
}

const (
	pageMarginX   = 14.0
	galleryImageW = 85.0
	galleryImageH = 65.0
	galleryGutter = 10.0
)

func (s *reportService) render(ctx context.Context, project *models.Project, preparer string, measurements []*models.Measurement, images []*models.Image) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()

	pdf.AddPage()

	// Header band
	pdf.SetFillColor(15, 23, 42)
	pdf.Rect(0, 0, pageWidth, 40, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Text(pageMarginX, 25, tr("INFORME DE MEDICIÓN"))

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(pageMarginX, 33, tr(fmt.Sprintf("Proyecto: %s", orNA(project.Location))))
	pdf.Text(pageWidth-50, 33, tr(fmt.Sprintf("Fecha: %s", project.CreatedAt.Format("02/01/2006"))))

	// Project block
	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(pageMarginX, 55, tr("Información del Proyecto"))

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(pageMarginX, 62, tr(fmt.Sprintf("Cliente: %s %s", project.FirstName, project.LastName)))
	pdf.Text(pageMarginX, 68, tr(fmt.Sprintf("Medidor: %s", orNA(preparer))))
	pdf.Text(pageMarginX, 74, tr(fmt.Sprintf("Tipo de Trabajo: %s", orNA(safeDeref(project.JobType)))))

	s.renderTable(pdf, tr, measurements)
	s.renderGallery(ctx, pdf, tr, images)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var tableHeaders = []string{"Planta", "Nº", "Estancia", "Producto", "Medidas", "Cant."}
var tableWidths = []float64{22, 14, 38, 40, 50, 14}

func (s *reportService) renderTable(pdf *gofpdf.Fpdf, tr func(string) string, measurements []*models.Measurement) {
	pdf.SetXY(pageMarginX, 85)
	s.renderTableHeader(pdf, tr)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(15, 23, 42)
	for i, row := range buildMeasurementRows(measurements) {
		_, y := pdf.GetXY()
		if y > 270 {
			pdf.AddPage()
			pdf.SetXY(pageMarginX, 20)
			s.renderTableHeader(pdf, tr)
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(15, 23, 42)
		}
		fill := i%2 == 1
		pdf.SetFillColor(248, 250, 252)
		for j, cell := range row {
			pdf.CellFormat(tableWidths[j], 8, tr(cell), "", 0, "L", fill, 0, "")
		}
		pdf.Ln(8)
		pdf.SetX(pageMarginX)
	}
}

func (s *reportService) renderTableHeader(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(15, 23, 42)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range tableHeaders {
		pdf.CellFormat(tableWidths[i], 8, tr(header), "", 0, "L", true, 0, "")
	}
	pdf.Ln(8)
	pdf.SetX(pageMarginX)
}

// renderGallery lays the project photos out two per row, breaking to a
// new page when vertical space runs out. An image that cannot be
// fetched or decoded is skipped; the report still ships.
func (s *reportService) renderGallery(ctx context.Context, pdf *gofpdf.Fpdf, tr func(string) string, images []*models.Image) {
	if len(images) == 0 {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(15, 23, 42)
	pdf.Text(pageMarginX, 20, tr("Galería Fotográfica"))

	y := 30.0
	col := 0
	for i, img := range images {
		data, imageType, err := s.fetchImage(ctx, img.PublicURL)
		if err != nil {
			log.Printf("Skipping image %s in report: %v", img.ID, err)
			continue
		}

		if y+galleryImageH > 260 {
			pdf.AddPage()
			y = 20
			col = 0
		}

		x := pageMarginX
		if col == 1 {
			x = pageMarginX + galleryImageW + galleryGutter
		}

		name := img.ID.String()
		opts := gofpdf.ImageOptions{ImageType: imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, x, y, galleryImageW, galleryImageH, false, opts, 0, "")

		caption := img.OriginalName
		if caption == "" {
			caption = fmt.Sprintf("Foto %d", i+1)
		}
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.Text(x, y+galleryImageH+5, tr(caption))

		if col == 1 {
			y += galleryImageH + 20
		}
		col = (col + 1) % 2
	}
}

// fetchImage downloads and validates one gallery image, returning the
// raw bytes and the gofpdf image type.
func (s *reportService) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	switch format {
	case "jpeg":
		return data, "JPG", nil
	case "png":
		return data, "PNG", nil
	case "gif":
		return data, "GIF", nil
	default:
		return nil, "", fmt.Errorf("unsupported image format %q", format)
	}
}

// buildMeasurementRows flattens measurements into the table cells. The
// same input always produces the same rows.
func buildMeasurementRows(measurements []*models.Measurement) [][]string {
	rows := make([][]string, 0, len(measurements))
	for _, m := range measurements {
		label := m.ProductLabel
		if label == "" {
			label = "-"
		}
		rows = append(rows, []string{
			m.Floor,
			m.RoomNumber,
			m.Room,
			label,
			formatDimensions(m.Width, m.Height, m.Depth),
			strconv.Itoa(m.Quantity),
		})
	}
	return rows
}

// formatDimensions renders WIDTHxHEIGHT cm, with depth appended when
// the product has one.
func formatDimensions(width, height float64, depth *float64) string {
	dims := formatNumber(width) + "x" + formatNumber(height)
	if depth != nil {
		dims += "x" + formatNumber(*depth)
	}
	return dims + " cm"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sanitizeFileName(s string) string {
	if s == "" {
		return "Export"
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', '#', '?', '%':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "Export"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func safeDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
