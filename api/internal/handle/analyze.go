package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/render"
	"vastu-check/api/internal/store"
	"vastu-check/api/internal/util"
	"vastu-check/api/internal/vastu"
)

type AnalyzeRequest struct {
	ImageB64 string `json:"image_b64"`
	Engine   string `json:"engine"`
}

type AnalyzeResponse struct {
	ID            string       `json:"id,omitempty"`
	Report        vastu.Report `json:"report"`
	AnalyzedImage string       `json:"analyzed_image"`
	Engine        string       `json:"engine"`
	Model         string       `json:"model"`
	Cached        bool         `json:"cached,omitempty"`
}

var errBadUpload = errors.New("send multipart/form-data, application/json or an image body")

// Analyze accepts a multipart upload (field "file"), a JSON body with
// image_b64 or a raw image body, and answers with the compliance report and
// the annotated plan. format=html returns a rendered page instead of JSON.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opt.MaxUploadBytes)

	raw, engineName, err := h.readImage(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if q := r.URL.Query().Get("engine"); q != "" {
		engineName = q
	}
	eng := h.def
	if engineName != "" {
		if eng, err = h.engs.GetEngine(engineName); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	resp, err := h.run(ctx, eng, raw)
	switch {
	case err == nil:
	case errors.Is(err, analyze.ErrNoDetections):
		writeJSON(w, http.StatusOK, map[string]string{"error": analyze.NoDetectionsMessage})
		return
	case errors.Is(err, analyze.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, analyze.ErrEngine):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if r.URL.Query().Get("format") == "html" {
		page, err := render.HTML(resp.Report, resp.AnalyzedImage)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handle) run(ctx context.Context, eng ocr.Engine, raw []byte) (*AnalyzeResponse, error) {
	hash := util.SHA256Hex(raw)
	if h.repo != nil {
		row, err := h.repo.FindByHash(ctx, hash, eng.Name(), eng.GetModel(), h.opt.CacheTTL)
		if err == nil {
			return &AnalyzeResponse{
				ID:            row.ID,
				Report:        row.Report,
				AnalyzedImage: util.MakeDataURL("image/jpeg", encodeB64(row.AnnotatedJPEG)),
				Engine:        row.Engine,
				Model:         row.Model,
				Cached:        true,
			}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("analysis cache lookup: %v", err)
		}
	}

	res, err := h.an.Analyze(ctx, eng, raw)
	if err != nil {
		return nil, err
	}
	out := &AnalyzeResponse{
		Report:        res.Report,
		AnalyzedImage: util.MakeDataURL("image/jpeg", encodeB64(res.Image)),
		Engine:        res.Engine,
		Model:         res.Model,
	}
	if h.repo != nil {
		row := &store.AnalysisRow{
			Source:        "http",
			ImageHash:     res.ImageHash,
			Engine:        res.Engine,
			Model:         res.Model,
			Report:        res.Report,
			AnnotatedJPEG: res.Image,
		}
		if err := h.repo.Save(ctx, row); err != nil {
			log.Printf("analysis save: %v", err)
		} else {
			out.ID = row.ID
		}
	}
	return out, nil
}

func (h *Handle) readImage(r *http.Request) ([]byte, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "multipart/form-data":
		if err := r.ParseMultipartForm(h.opt.MaxUploadBytes); err != nil {
			return nil, "", err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, "", errors.New("multipart field \"file\" is required")
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return b, r.FormValue("engine"), nil

	case ct == "application/json":
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, "", err
			}
			return nil, "", errors.New("bad json: " + err.Error())
		}
		b, _, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
		if err != nil || len(b) == 0 {
			return nil, "", errors.New("bad image_b64")
		}
		return b, req.Engine, nil

	case strings.HasPrefix(ct, "image/"), ct == "application/octet-stream":
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		return b, "", nil
	}
	return nil, "", errBadUpload
}

// deadline lets X-Request-Timeout (seconds) shorten the configured timeout.
func (h *Handle) deadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return min(time.Duration(v)*time.Second, h.opt.Timeout)
		}
	}
	return h.opt.Timeout
}

func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
