package analyze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/plan"
	"vastu-check/api/internal/util"
	"vastu-check/api/internal/vastu"
)

// NoDetectionsMessage is what clients see when no room label survived matching.
const NoDetectionsMessage = "Could not detect any recognizable room titles in the image."

var (
	ErrMalformedInput = errors.New("malformed image")
	ErrNoDetections   = errors.New("no recognizable room titles")
	// ErrEngine wraps every failure of the OCR call; its text prefixes the cause.
	ErrEngine = errors.New("ocr error")
)

type Options struct {
	Plan plan.Options
	OCR  ocr.Options
}

func DefaultOptions() Options {
	return Options{Plan: plan.DefaultOptions()}
}

// Analyzer runs the floor-plan pipeline against a fixed catalog. It holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	catalog *vastu.Catalog
	opt     Options
	tracer  trace.Tracer
}

func New(catalog *vastu.Catalog, opt Options) *Analyzer {
	if catalog == nil {
		catalog = vastu.Default
	}
	return &Analyzer{
		catalog: catalog,
		opt:     opt,
		tracer:  otel.Tracer("vastu-check/analyze"),
	}
}

func (a *Analyzer) Catalog() *vastu.Catalog { return a.catalog }

type Result struct {
	Report     vastu.Report        `json:"report"`
	Rooms      []vastu.LocatedRoom `json:"rooms"`
	Detections int                 `json:"detections"`
	Image      []byte              `json:"-"` // annotated JPEG
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	ImageHash  string              `json:"image_hash"`
	Engine     string              `json:"engine"`
	Model      string              `json:"model"`
}

// Analyze decodes raw, normalizes it, calls eng exactly once and classifies
// the recognized rooms. Malformed input fails before the engine is called.
func (a *Analyzer) Analyze(ctx context.Context, eng ocr.Engine, raw []byte) (*Result, error) {
	ctx, span := a.tracer.Start(ctx, "analyze")
	defer span.End()
	start := time.Now()

	res, err := a.run(ctx, eng, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("analyze: engine=%s bytes=%d err=%v (%s)", eng.Name(), len(raw), err, time.Since(start))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vastu.rooms", res.Report.Summary.TotalRoomsAnalyzed),
		attribute.Int("vastu.verified", res.Report.Summary.VerifiedPlacements),
	)
	log.Printf("analyze: engine=%s model=%s %dx%d detections=%d rooms=%d verified=%d (%s)",
		res.Engine, res.Model, res.Width, res.Height, res.Detections,
		res.Report.Summary.TotalRoomsAnalyzed, res.Report.Summary.VerifiedPlacements, time.Since(start))
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, eng ocr.Engine, raw []byte) (*Result, error) {
	_, span := a.tracer.Start(ctx, "plan.normalize")
	img, _, err := plan.Decode(raw)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	img = plan.Normalize(img, a.opt.Plan)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	png, err := plan.EncodePNG(img)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("encode normalized plan: %w", err)
	}

	ocrCtx, span := a.tracer.Start(ctx, "ocr.detect", trace.WithAttributes(
		attribute.String("ocr.engine", eng.Name()),
		attribute.String("ocr.model", eng.GetModel()),
	))
	found, err := eng.Detect(ocrCtx, png, a.opt.OCR)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngine, err)
	}

	dets := make([]vastu.Detection, len(found))
	for i, d := range found {
		dets[i] = vastu.Detection{
			Text:       d.Text,
			Confidence: d.Confidence,
			Box:        vastu.BoxFromCorners(d.Bounds.X0, d.Bounds.Y0, d.Bounds.X1, d.Bounds.Y1),
		}
	}
	matched := a.catalog.MatchDetections(dets)
	if len(matched) == 0 {
		return nil, ErrNoDetections
	}
	rooms := vastu.LocateRooms(matched, w, h)
	report := vastu.BuildReport(a.catalog, rooms)

	_, span = a.tracer.Start(ctx, "plan.annotate")
	plan.Annotate(img, rooms)
	jpg, err := plan.EncodeJPEG(img)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("encode annotated plan: %w", err)
	}

	return &Result{
		Report:     report,
		Rooms:      rooms,
		Detections: len(found),
		Image:      jpg,
		Width:      w,
		Height:     h,
		ImageHash:  util.SHA256Hex(raw),
		Engine:     eng.Name(),
		Model:      eng.GetModel(),
	}, nil
}
