package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
)

// RoutePoint is one waypoint of an evacuation route.
type RoutePoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// Route is a named evacuation route.
type Route struct {
	Name               string       `json:"name"`
	Points             []RoutePoint `json:"points"`
	AccessibilityNotes string       `json:"accessibility_notes,omitempty"`
}

// ScenarioAssets bundles the materials produced by the scenario stage.
type ScenarioAssets struct {
	ScriptMD  string   `json:"script_md"`
	RolesCSV  string   `json:"roles_csv"`
	Routes    []Route  `json:"routes"`
	Languages []string `json:"languages"`
}

// ScenarioResult is the scenario stage result.
type ScenarioResult struct {
	Assets ScenarioAssets `json:"assets"`
}

// ScenarioExecutor produces the drill script, role sheet, and routes.
type ScenarioExecutor struct {
	gen    core.TextGenerator
	logger *slog.Logger
}

func (e *ScenarioExecutor) Execute(ctx context.Context, in Input) (*Output, error) {
	result := ScenarioResult{Assets: buildScenarioAssets(in.Request, in.Region)}

	if e.gen != nil && e.gen.Enabled() {
		refined := ScenarioResult{}
		if err := e.gen.GenerateJSON(ctx, scenarioPrompt(in.Request), &refined); err != nil {
			return nil, fmt.Errorf("generate scenario: %w", err)
		}
		if refined.Assets.ScriptMD != "" {
			result.Assets.ScriptMD = refined.Assets.ScriptMD
		}
		if refined.Assets.RolesCSV != "" {
			result.Assets.RolesCSV = refined.Assets.RolesCSV
		}
		if len(refined.Assets.Routes) > 0 {
			result.Assets.Routes = refined.Assets.Routes
		}
	}

	raw, err := marshalResult(result)
	if err != nil {
		return nil, err
	}

	routesJSON, err := json.Marshal(result.Assets.Routes)
	if err != nil {
		return nil, fmt.Errorf("marshal routes: %w", err)
	}

	return &Output{
		Result: raw,
		Artifacts: []Artifact{
			{Name: "script_md", ContentType: "text/markdown", Data: []byte(result.Assets.ScriptMD)},
			{Name: "roles_csv", ContentType: "text/csv", Data: []byte(result.Assets.RolesCSV)},
			{Name: "routes_json", ContentType: "application/json", Data: routesJSON},
		},
	}, nil
}

func buildScenarioAssets(req *model.DrillRequest, region *model.RegionContext) ScenarioAssets {
	languages := languagesOrDefault(req)

	var script strings.Builder
	script.WriteString("# 訓練台本\n\n")
	fmt.Fprintf(&script, "対象: %s、参加者 %d 名\n\n", req.Location.Address, req.Participants.Total)
	script.WriteString("1. 開始アナウンスと点呼\n")
	for i, hazard := range req.Hazard.Types {
		fmt.Fprintf(&script, "%d. %s の対応行動\n", i+2, hazardTitles[hazard])
	}
	fmt.Fprintf(&script, "%d. 避難完了の確認と振り返り\n", len(req.Hazard.Types)+2)

	roles := "role,name\nLead,\nSafety,\nFirstAid,\n"
	if req.Participants.Wheelchair > 0 {
		roles += "AccessibilitySupport,\n"
	}
	if len(languages) > 1 {
		roles += "Interpreter,\n"
	}

	// Route endpoints prefer a known shelter; the site itself anchors the start.
	endpoint := RoutePoint{Lat: req.Location.Lat, Lng: req.Location.Lng, Label: "集合場所"}
	if region != nil && len(region.Shelters) > 0 {
		shelter := region.Shelters[0]
		endpoint = RoutePoint{Lat: shelter.Lat, Lng: shelter.Lng, Label: shelter.Name}
	}
	routes := []Route{{
		Name: "Main",
		Points: []RoutePoint{
			{Lat: req.Location.Lat, Lng: req.Location.Lng, Label: "Start"},
			endpoint,
		},
	}}
	if req.Participants.Wheelchair > 0 {
		routes = append(routes, Route{
			Name:               "Step-free",
			Points:             routes[0].Points,
			AccessibilityNotes: "段差・階段を避ける経路。エレベーター停止時は介助で対応。",
		})
	}

	return ScenarioAssets{
		ScriptMD:  script.String(),
		RolesCSV:  roles,
		Routes:    routes,
		Languages: languages,
	}
}

func scenarioPrompt(req *model.DrillRequest) string {
	var b strings.Builder
	b.WriteString("Create a scenario assets bundle.\n")
	fmt.Fprintf(&b, "Address: %s\n", req.Location.Address)
	fmt.Fprintf(&b, "Hazards: %v\n", req.Hazard.Types)
	fmt.Fprintf(&b, "Participants: total=%d wheelchair=%d\n",
		req.Participants.Total, req.Participants.Wheelchair)
	fmt.Fprintf(&b, "Languages: %v\n", languagesOrDefault(req))
	b.WriteString(`Return strictly a JSON object with key "assets" holding script_md, roles_csv, routes, languages.`)
	return b.String()
}
