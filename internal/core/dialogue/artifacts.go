package dialogue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// BuildShoppingList 由已確認菜品拼裝採買清單。
// 純確定性：逐道菜取原料與計量段落原文，不做聚合去重。
func BuildShoppingList(confirmed []common.EnrichedRecord) string {
	var sb strings.Builder
	sb.WriteString("# 采买清单\n\n")
	for i := range confirmed {
		r := &confirmed[i]
		sb.WriteString(fmt.Sprintf("## %s\n\n", r.Name))

		if ingredients := strings.TrimSpace(r.Section(common.SectionIngredients)); ingredients != "" {
			sb.WriteString("### 原料与工具\n\n")
			sb.WriteString(ingredients)
			sb.WriteString("\n\n")
		}
		if quantities := strings.TrimSpace(r.Section(common.SectionQuantities)); quantities != "" {
			sb.WriteString("### 计量\n\n")
			sb.WriteString(quantities)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// PlanStep 工作流中的一個步驟
type PlanStep struct {
	Step      int    `json:"step"`
	Action    string `json:"action"`
	TimeMin   int    `json:"time_min"`
	Equipment string `json:"equipment"`
}

// WorkflowPlan 多道菜並行烹飪的工作流
type WorkflowPlan struct {
	Plan         []PlanStep `json:"plan"`
	TotalTimeMin int        `json:"total_time_min"`
}

// Planner 烹飪工作流規劃器：主路徑走生成服務，
// 步驟文字總量超過閾值時切粗粒度模式；失敗退回固定分段大綱。
type Planner struct {
	client    ai.Client
	macroOver int
}

// NewPlanner 創建規劃器
func NewPlanner(client ai.Client, macroPlanThreshold int) *Planner {
	return &Planner{client: client, macroOver: macroPlanThreshold}
}

const planSystemPrompt = `你是家庭烹饪流程规划助手。为多道菜安排交错并行的烹饪顺序，利用炖煮等待时间处理其他菜。只输出 JSON，不要输出任何解释文字。`

// Plan 生成工作流。Plan 從不失敗：生成失敗或解析失敗時返回回退大綱。
func (p *Planner) Plan(ctx context.Context, confirmed []common.EnrichedRecord) WorkflowPlan {
	plan, err := p.requestPlan(ctx, confirmed)
	if err != nil {
		common.LogWarn("工作流規劃失敗，改用固定分段大綱", zap.Error(err))
		return fallbackWorkflow(confirmed)
	}
	if len(plan.Plan) == 0 {
		common.LogWarn("工作流規劃返回空步驟，改用固定分段大綱")
		return fallbackWorkflow(confirmed)
	}
	return plan
}

// requestPlan 調用生成服務規劃工作流
func (p *Planner) requestPlan(ctx context.Context, confirmed []common.EnrichedRecord) (WorkflowPlan, error) {
	body, macro := p.describeDishes(confirmed)

	mode := "请逐步规划，每个操作一条。"
	if macro {
		mode = "菜谱内容较多，请按阶段粗粒度规划，每道菜合并为 2-3 个关键阶段。"
	}

	prompt := fmt.Sprintf(`请为下面这几道菜规划一份可并行的烹饪工作流。%s

%s

要求：
1. 合理交错：炖煮、腌制等等待时间应安排其他菜的操作
2. time_min 为该步骤预计分钟数，equipment 为占用的主要器具
3. total_time_min 为整个流程的总耗时（分钟）
4. 只回传一个独立的 JSON，所有字段都必须使用双引号

请以以下 JSON 格式返回（仅作为范例，请勿直接复制内容）：
{"plan":[{"step":1,"action":"洗净切好所有蔬菜","time_min":10,"equipment":"案板"}],"total_time_min":45}`, mode, body)

	content, err := p.client.Generate(ctx, planSystemPrompt, prompt)
	if err != nil {
		return WorkflowPlan{}, err
	}

	var plan WorkflowPlan
	if err := common.ParseGeneratedJSON(content, &plan); err != nil {
		return WorkflowPlan{}, fmt.Errorf("failed to parse workflow response: %w", err)
	}
	return plan, nil
}

// describeDishes 拼裝菜品描述；總量超過閾值時只帶菜名與描述（粗粒度模式）
func (p *Planner) describeDishes(confirmed []common.EnrichedRecord) (string, bool) {
	var full strings.Builder
	for i := range confirmed {
		r := &confirmed[i]
		full.WriteString(fmt.Sprintf("## %s\n%s\n", r.Name, strings.TrimSpace(r.Section(common.SectionSteps))))
	}
	if p.macroOver > 0 && full.Len() > p.macroOver {
		var brief strings.Builder
		for i := range confirmed {
			r := &confirmed[i]
			brief.WriteString(fmt.Sprintf("- %s（难度 %d）：%s\n",
				r.Name, r.Difficulty, firstLine(r.Section(common.SectionDescription))))
		}
		return brief.String(), true
	}
	return full.String(), false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// fallbackWorkflow 確定性回退：備菜 → 湯羹/主食先行 → 熱菜 → 裝盤
func fallbackWorkflow(confirmed []common.EnrichedRecord) WorkflowPlan {
	var soups, others []string
	for i := range confirmed {
		r := &confirmed[i]
		if r.Category == common.CategorySoup {
			soups = append(soups, r.Name)
		} else {
			others = append(others, r.Name)
		}
	}

	var steps []PlanStep
	add := func(action string, timeMin int, equipment string) {
		steps = append(steps, PlanStep{
			Step:      len(steps) + 1,
			Action:    action,
			TimeMin:   timeMin,
			Equipment: equipment,
		})
	}

	add("清洗、切配所有食材，按菜分盘备用", 15, "案板")
	if len(soups) > 0 {
		add(fmt.Sprintf("先炖上 %s，小火慢煮", strings.Join(soups, "、")), 30, "汤锅")
	}
	for _, name := range others {
		add(fmt.Sprintf("烹制 %s", name), 12, "炒锅")
	}
	add("全部装盘上桌", 5, "")

	total := 0
	for _, s := range steps {
		total += s.TimeMin
	}
	return WorkflowPlan{Plan: steps, TotalTimeMin: total}
}

// WriteGuide 將菜單、採買清單、工作流與每道菜的完整做法
// 寫成一份 Markdown 烹飪指南，檔名帶會話短碼。
// 寫檔失敗只記警告，不影響對話流程；返回實際寫入路徑。
func WriteGuide(dir, sessionID string, menu common.Menu, shoppingList string, plan WorkflowPlan, confirmed []common.EnrichedRecord) string {
	if dir == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# 烹饪指南\n\n")
	sb.WriteString(fmt.Sprintf("生成时间：%s\n\n", time.Now().Format("2006-01-02 15:04")))

	sb.WriteString("## 菜单\n\n")
	for _, item := range menu.Items {
		sb.WriteString(fmt.Sprintf("- %s：%s\n", item.Name, item.Reason))
	}
	sb.WriteString("\n")

	sb.WriteString(shoppingList)

	sb.WriteString("## 烹饪流程\n\n")
	for _, step := range plan.Plan {
		sb.WriteString(fmt.Sprintf("%d. %s（约 %d 分钟", step.Step, step.Action, step.TimeMin))
		if step.Equipment != "" {
			sb.WriteString("，" + step.Equipment)
		}
		sb.WriteString("）\n")
	}
	sb.WriteString(fmt.Sprintf("\n预计总耗时：%d 分钟\n", plan.TotalTimeMin))

	if len(confirmed) > 0 {
		sb.WriteString("\n## 每道菜的做法\n\n")
		for i := range confirmed {
			r := &confirmed[i]
			sb.WriteString(fmt.Sprintf("### %s\n\n", r.Name))
			if quantities := strings.TrimSpace(r.Section(common.SectionQuantities)); quantities != "" {
				sb.WriteString(quantities)
				sb.WriteString("\n\n")
			}
			if steps := strings.TrimSpace(r.Section(common.SectionSteps)); steps != "" {
				sb.WriteString(steps)
				sb.WriteString("\n\n")
			}
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		common.LogWarn("創建指南目錄失敗", zap.String("目錄", dir), zap.Error(err))
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("guide_%s_%s.md",
		common.ShortID(sessionID), time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		common.LogWarn("寫入烹飪指南失敗", zap.String("路徑", path), zap.Error(err))
		return ""
	}
	common.LogInfo("烹飪指南已寫入", zap.String("路徑", path))
	return path
}
