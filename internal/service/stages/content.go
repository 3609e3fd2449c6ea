package stages

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
)

// placeholderPNG is a 1x1 transparent PNG served while no generative media
// backend is wired up.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAAEElEQVR4nGMAAQAABQABDQottAAAAABJRU5ErkJggg==",
)

// VideoShot is one entry of the promo video shotlist.
type VideoShot struct {
	Description string `json:"description"`
	DurationSec int    `json:"duration_sec"`
}

// ContentResult is the content stage result.
type ContentResult struct {
	PosterPrompts []string    `json:"poster_prompts"`
	VideoPrompt   string      `json:"video_prompt"`
	Shotlist      []VideoShot `json:"shotlist"`
}

// ContentExecutor produces poster and video prompts plus the poster image.
type ContentExecutor struct {
	gen    core.TextGenerator
	logger *slog.Logger
}

func (e *ContentExecutor) Execute(ctx context.Context, in Input) (*Output, error) {
	result := buildContent(in.Request)

	if e.gen != nil && e.gen.Enabled() {
		refined := ContentResult{}
		if err := e.gen.GenerateJSON(ctx, contentPrompt(in.Request), &refined); err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		if len(refined.PosterPrompts) > 0 {
			result.PosterPrompts = refined.PosterPrompts
		}
		if refined.VideoPrompt != "" {
			result.VideoPrompt = refined.VideoPrompt
		}
		if len(refined.Shotlist) > 0 {
			result.Shotlist = refined.Shotlist
		}
	}

	raw, err := marshalResult(result)
	if err != nil {
		return nil, err
	}

	return &Output{
		Result: raw,
		Artifacts: []Artifact{
			{Name: "poster_prompt_txt", ContentType: "text/plain", Data: []byte(strings.Join(result.PosterPrompts, "\n"))},
			{Name: "poster_png", ContentType: "image/png", Data: placeholderPNG},
			{Name: "video_prompt_txt", ContentType: "text/plain", Data: []byte(result.VideoPrompt)},
		},
	}, nil
}

func buildContent(req *model.DrillRequest) ContentResult {
	languages := languagesOrDefault(req)

	poster := fmt.Sprintf("避難誘導ポスター %s 向け、言語 %s",
		req.Location.Address, strings.Join(languages, "/"))
	if req.PosterStyle != "" {
		poster += "、スタイル: " + req.PosterStyle
	}
	if len(req.BrandColors) > 0 {
		poster += "、ブランドカラー: " + strings.Join(req.BrandColors, ",")
	}

	hazardLabels := make([]string, 0, len(req.Hazard.Types))
	for _, h := range req.Hazard.Types {
		hazardLabels = append(hazardLabels, string(h))
	}

	return ContentResult{
		PosterPrompts: []string{poster},
		VideoPrompt: fmt.Sprintf("60秒の訓練告知VTR。対象災害: %s。台本に沿って撮影。",
			strings.Join(hazardLabels, ", ")),
		Shotlist: []VideoShot{
			{Description: "会場の全景と集合の様子", DurationSec: 10},
			{Description: "点呼と役割分担の確認", DurationSec: 15},
			{Description: "避難経路を移動する参加者", DurationSec: 25},
			{Description: "振り返りと次回予告", DurationSec: 10},
		},
	}
}

func contentPrompt(req *model.DrillRequest) string {
	var b strings.Builder
	b.WriteString("Create drill promotion content.\n")
	fmt.Fprintf(&b, "Address: %s\n", req.Location.Address)
	fmt.Fprintf(&b, "Hazards: %v\n", req.Hazard.Types)
	fmt.Fprintf(&b, "Languages: %v\n", languagesOrDefault(req))
	if req.PosterStyle != "" {
		fmt.Fprintf(&b, "Poster style: %s\n", req.PosterStyle)
	}
	if len(req.BrandColors) > 0 {
		fmt.Fprintf(&b, "Brand colors: %v\n", req.BrandColors)
	}
	b.WriteString(`Return strictly a JSON object with keys poster_prompts, video_prompt, shotlist.`)
	return b.String()
}
