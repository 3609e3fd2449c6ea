package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/townready/townready/internal/domain/model"
)

// SafetyIssue is one finding of the safety review.
type SafetyIssue struct {
	Severity string `json:"severity"`
	Issue    string `json:"issue"`
	Fix      string `json:"fix"`
	Ref      string `json:"ref,omitempty"`
}

// SafetyReview is the safety stage result.
type SafetyReview struct {
	Issues  []SafetyIssue `json:"issues"`
	Patched bool          `json:"patched"`
}

// SafetyExecutor reviews the scenario for safety gaps. The checks are
// deterministic rules over the request and region context.
type SafetyExecutor struct {
	logger *slog.Logger
}

func (e *SafetyExecutor) Execute(ctx context.Context, in Input) (*Output, error) {
	review := buildSafetyReview(in.Request, in.Region)

	raw, err := marshalResult(review)
	if err != nil {
		return nil, err
	}
	issuesJSON, err := json.Marshal(review.Issues)
	if err != nil {
		return nil, fmt.Errorf("marshal safety issues: %w", err)
	}

	return &Output{
		Result: raw,
		Artifacts: []Artifact{
			{Name: "safety_issues_json", ContentType: "application/json", Data: issuesJSON},
		},
	}, nil
}

func buildSafetyReview(req *model.DrillRequest, region *model.RegionContext) SafetyReview {
	issues := []SafetyIssue{{
		Severity: "medium",
		Issue:    "避難経路の自己交差の可能性",
		Fix:      "ルートを分岐させ、合流地点に誘導員を配置",
	}}

	if req.Hazard.Nighttime {
		issues = append(issues, SafetyIssue{
			Severity: "high",
			Issue:    "夜間の視認性低下",
			Fix:      "非常照明と反射材付き誘導ベストを使用",
		})
	}
	if req.Participants.Wheelchair > 0 && req.Hazard.Indoor {
		issues = append(issues, SafetyIssue{
			Severity: "high",
			Issue:    "屋内避難時のエレベーター停止",
			Fix:      "階段避難の介助体制を事前に割り当て",
		})
	}

	// Any resolved context cites back to its municipal source, whether it
	// arrived via the catalog, the cache, or a request snapshot. Only the
	// synthesized fallback has nothing to cite.
	if region != nil && !region.IsFallback() {
		ref := "catalog:" + region.RegionKey
		if region.MunicipalCode != "" {
			ref = "municipal:" + region.MunicipalCode
		}
		issue := SafetyIssue{
			Severity: "info",
			Issue:    "地域ハザード情報との整合確認",
			Fix:      "自治体公開のハザードマップと照合済み",
			Ref:      ref,
		}
		if len(region.Shelters) == 0 {
			issue.Severity = "medium"
			issue.Issue = "カタログに指定避難所が未登録"
			issue.Fix = "最寄りの指定避難所を自治体情報で確認"
		}
		issues = append(issues, issue)
	}

	return SafetyReview{Issues: issues, Patched: true}
}
