package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
)

// ScenarioOutline is one drill scenario proposed by the plan stage.
type ScenarioOutline struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Languages []string `json:"languages"`
}

// KPITargets are the measurable goals a drill plan commits to.
type KPITargets struct {
	AttendanceRate float64 `json:"attendance_rate"`
	AvgEvacTimeSec int     `json:"avg_evac_time_sec"`
	QuizScore      float64 `json:"quiz_score"`
}

// KPIPlan pairs targets with the collection mechanisms that measure them.
type KPIPlan struct {
	Targets    KPITargets `json:"targets"`
	Collection []string   `json:"collection"`
}

// Acceptance lists what the generated drill must include to be accepted.
type Acceptance struct {
	MustInclude []string `json:"must_include"`
	KPIPlan     KPIPlan  `json:"kpi_plan"`
}

// Handoff names the next stage and the context it starts from.
type Handoff struct {
	To   string         `json:"to"`
	With map[string]any `json:"with"`
}

// PlanSpec is the plan stage result.
type PlanSpec struct {
	Scenarios  []ScenarioOutline `json:"scenarios"`
	Acceptance Acceptance        `json:"acceptance"`
	Handoff    Handoff           `json:"handoff"`
}

// hazardTitles maps each hazard to its scenario title fragment.
var hazardTitles = map[model.HazardType]string{
	model.HazardEarthquake: "地震発生→安全確保→避難",
	model.HazardFire:       "火災発生→初期消火→避難",
	model.HazardFlood:      "大雨・浸水→垂直避難",
	model.HazardTsunami:    "津波警報→高台避難",
	model.HazardLandslide:  "土砂災害警戒→事前避難",
}

// PlanExecutor produces the PlanSpec for a drill request.
type PlanExecutor struct {
	gen    core.TextGenerator
	logger *slog.Logger
}

func (e *PlanExecutor) Execute(ctx context.Context, in Input) (*Output, error) {
	spec := buildPlan(in.Request, in.Region)

	if e.gen != nil && e.gen.Enabled() {
		refined := PlanSpec{}
		if err := e.gen.GenerateJSON(ctx, planPrompt(in.Request), &refined); err != nil {
			return nil, fmt.Errorf("generate plan: %w", err)
		}
		// Generated scenarios replace the template ones; acceptance rules
		// stay deterministic so downstream checks hold.
		if len(refined.Scenarios) > 0 {
			spec.Scenarios = refined.Scenarios
		}
	}

	raw, err := marshalResult(spec)
	if err != nil {
		return nil, err
	}
	return &Output{Result: raw}, nil
}

func buildPlan(req *model.DrillRequest, region *model.RegionContext) PlanSpec {
	languages := languagesOrDefault(req)

	scenarios := make([]ScenarioOutline, 0, len(req.Hazard.Types))
	for i, hazard := range req.Hazard.Types {
		title := hazardTitles[hazard]
		if title == "" {
			title = string(hazard)
		}
		scenarios = append(scenarios, ScenarioOutline{
			ID:        fmt.Sprintf("S%d", i+1),
			Title:     title,
			Languages: languages,
		})
	}

	mustInclude := []string{"点呼による安否確認", "避難経路の事前周知"}
	if req.Participants.Wheelchair > 0 {
		mustInclude = append(mustInclude, "車椅子対応の避難経路とサポート担当")
	}
	if req.Participants.Children > 0 {
		mustInclude = append(mustInclude, "子ども向けの誘導・引き渡し手順")
	}
	if len(languages) > 1 {
		mustInclude = append(mustInclude, "多言語アナウンス "+strings.Join(languages, "/"))
	}
	if req.Hazard.Nighttime {
		mustInclude = append(mustInclude, "夜間照明と誘導灯の確認")
	}
	// Flood call-outs require real regional data; a fallback context has
	// none and must not fabricate inundation guidance.
	if req.HasHazard(model.HazardFlood) && region != nil && !region.IsFallback() && region.FloodCoverage() > 0 {
		mustInclude = append(mustInclude,
			fmt.Sprintf("想定浸水域(%.1fkm2)を上回る高さへの垂直避難", region.FloodCoverage()))
	}

	return PlanSpec{
		Scenarios: scenarios,
		Acceptance: Acceptance{
			MustInclude: mustInclude,
			KPIPlan: KPIPlan{
				Targets:    KPITargets{AttendanceRate: 0.6, AvgEvacTimeSec: 300, QuizScore: 0.7},
				Collection: []string{"checkin", "route_time", "post_quiz"},
			},
		},
		Handoff: Handoff{
			To:   "Scenario Agent",
			With: map[string]any{"scenario_id": "S1"},
		},
	}
}

func planPrompt(req *model.DrillRequest) string {
	var b strings.Builder
	b.WriteString("Create a drill PlanSpec for the following.\n")
	fmt.Fprintf(&b, "Address: %s\n", req.Location.Address)
	fmt.Fprintf(&b, "Participants: total=%d children=%d elderly=%d wheelchair=%d\n",
		req.Participants.Total, req.Participants.Children,
		req.Participants.Elderly, req.Participants.Wheelchair)
	fmt.Fprintf(&b, "Hazards: %v indoor=%t nighttime=%t\n",
		req.Hazard.Types, req.Hazard.Indoor, req.Hazard.Nighttime)
	fmt.Fprintf(&b, "Languages: %v\n", languagesOrDefault(req))
	b.WriteString(`Return strictly a JSON object with keys scenarios, acceptance, handoff.`)
	return b.String()
}
