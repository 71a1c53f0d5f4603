package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/store"
	"vastu-check/api/internal/util"
	"vastu-check/api/internal/vastu"
)

// imageFileID picks the largest photo size, or an image sent as a file.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID, true
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID, true
	}
	return "", false
}

func (r *Router) acceptImage(ctx context.Context, chatID int64, fileID string) {
	if !r.state.tryStart(chatID) {
		r.send(chatID, "⏳ Still working on your previous plan, please wait.")
		return
	}
	defer r.state.done(chatID)

	eng := r.EngManager.Get(chatID)
	r.send(chatID, fmt.Sprintf("📐 Plan received, analyzing with %s…", eng.Name()))

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	img, err := download(ctx, url)
	if err != nil {
		r.SendError(chatID, fmt.Errorf("download: %w", err))
		return
	}

	rep, jpg, cached, err := r.analyzePlan(ctx, chatID, eng, img)
	switch {
	case err == nil:
	case errors.Is(err, analyze.ErrNoDetections):
		r.send(chatID, analyze.NoDetectionsMessage)
		return
	case errors.Is(err, analyze.ErrMalformedInput):
		r.send(chatID, "I could not read that image. Send the plan as PNG or JPEG.")
		return
	default:
		r.SendError(chatID, err)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "plan.jpg", Bytes: jpg})
	photo.Caption = summaryLine(rep.Summary)
	r.sendMsg(photo)
	r.sendMarkdown(chatID, reportText(rep, eng.Name(), cached))
}

func (r *Router) analyzePlan(ctx context.Context, chatID int64, eng ocr.Engine, img []byte) (vastu.Report, []byte, bool, error) {
	hash := util.SHA256Hex(img)
	if r.Repo != nil {
		row, err := r.Repo.FindByHash(ctx, hash, eng.Name(), eng.GetModel(), r.CacheTTL)
		if err == nil {
			return row.Report, row.AnnotatedJPEG, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("analysis cache lookup: %v", err)
		}
	}

	res, err := r.Analyzer.Analyze(ctx, eng, img)
	if err != nil {
		return vastu.Report{}, nil, false, err
	}
	if r.Repo != nil {
		err := r.Repo.Save(ctx, &store.AnalysisRow{
			Source:        "telegram",
			ChatID:        chatID,
			ImageHash:     res.ImageHash,
			Engine:        res.Engine,
			Model:         res.Model,
			Report:        res.Report,
			AnnotatedJPEG: res.Image,
		})
		if err != nil {
			log.Printf("analysis save: %v", err)
		}
	}
	return res.Report, res.Image, false, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
