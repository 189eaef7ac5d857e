package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cooking-agent/internal/core/knowledge"
	"cooking-agent/internal/core/menu"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// resetPhrases 全局重置指令（繁簡都收）
var resetPhrases = []string{"重新开始", "重新规划", "重新開始", "重新規劃"}

// Controller 有限狀態對話控制器。
// 一個 Controller 服務一個 Session；知識庫為唯讀共享。
type Controller struct {
	kb       *knowledge.Base
	composer *menu.Composer
	planner  *Planner

	extractor     PreferenceExtractor
	ruleExtractor PreferenceExtractor
	classifier    IntentClassifier
	ruleClassify  IntentClassifier

	guideDir string
}

// NewController 組裝對話控制器
func NewController(cfg *config.Config, kb *knowledge.Base, composer *menu.Composer, planner *Planner, extractor PreferenceExtractor, classifier IntentClassifier) *Controller {
	return &Controller{
		kb:            kb,
		composer:      composer,
		planner:       planner,
		extractor:     extractor,
		ruleExtractor: NewRuleExtractor(),
		classifier:    classifier,
		ruleClassify:  NewRuleClassifier(),
		guideDir:      cfg.Dialogue.GuideDir,
	}
}

// IsResetPhrase 是否為重置指令
func IsResetPhrase(input string) bool {
	trimmed := strings.TrimSpace(input)
	for _, phrase := range resetPhrases {
		if trimmed == phrase {
			return true
		}
	}
	return false
}

// HandleTurn 處理一輪使用者輸入，返回回覆文字。
// 任何未處理的失敗都會恢復到調用前的會話狀態並給出自然語言回覆，
// 一輪對話永不以錯誤收場。
func (c *Controller) HandleTurn(ctx context.Context, session *Session, input string) (reply string) {
	snapshot := *session

	defer func() {
		if r := recover(); r != nil {
			common.LogError("對話輪次發生未處理異常",
				zap.String("會話", session.ID),
				zap.Any("異常", r),
			)
			*session = snapshot
			reply = "抱歉，我这边出了点问题，请再说一遍。"
		}
	}()

	session.Append("user", input)

	if IsResetPhrase(input) {
		session.Reset()
		reply = "好的，我们重新开始。请告诉我用餐人数和口味偏好（比如：三个人，想吃辣，不吃香菜）。"
		session.Append("assistant", reply)
		return reply
	}

	switch session.State {
	case StateAwaitingPreferences:
		reply = c.handleAwaiting(ctx, session, input)
	case StateRecommendingMenu:
		reply = c.handleRecommending(ctx, session, input)
	case StateReadyForQuestions:
		reply = c.handleReady(session, input)
	default:
		// 中間狀態不應暴露給使用者輪次，視同就緒態
		reply = c.handleReady(session, input)
	}

	session.Append("assistant", reply)
	return reply
}

// extractPreferences 主路徑走生成服務抽取，失敗退回規則抽取
func (c *Controller) extractPreferences(ctx context.Context, input string) common.Preferences {
	if c.extractor != nil {
		prefs, err := c.extractor.Extract(ctx, input)
		if err == nil {
			return prefs
		}
		common.LogWarn("偏好抽取服務失敗，改用規則抽取", zap.Error(err))
	}
	prefs, _ := c.ruleExtractor.Extract(ctx, input)
	return prefs
}

// classifyIntent 主路徑走生成服務分類，失敗退回規則分類
func (c *Controller) classifyIntent(ctx context.Context, input string, m common.Menu) Intent {
	if c.classifier != nil {
		intent, err := c.classifier.Classify(ctx, input, m)
		if err == nil {
			return intent
		}
		common.LogWarn("意圖分類服務失敗，改用規則分類", zap.Error(err))
	}
	intent, _ := c.ruleClassify.Classify(ctx, input, m)
	return intent
}

// handleAwaiting 等待偏好：抽取並合併偏好，滿足最低要件即生成菜單
func (c *Controller) handleAwaiting(ctx context.Context, session *Session, input string) string {
	extracted := c.extractPreferences(ctx, input)
	session.Prefs.Merge(extracted)

	if err := validatePreferences(&session.Prefs); err != nil {
		return clarificationFor(err)
	}

	return c.recommend(ctx, session)
}

// validatePreferences 最低要件：人數已知，且口味或特殊人群至少有其一
func validatePreferences(prefs *common.Preferences) error {
	var missing []string
	if prefs.PeopleCount <= 0 {
		missing = append(missing, "用餐人数")
	}
	if len(prefs.TastePreferences) == 0 && len(prefs.SpecialGroup) == 0 {
		missing = append(missing, "口味偏好或同餐人群")
	}
	if len(missing) > 0 {
		return common.NewValidationError("偏好信息不足", missing...)
	}
	return nil
}

// clarificationFor 把驗證錯誤翻成追問話術
func clarificationFor(err error) string {
	if common.IsValidationError(err) {
		var ve *common.ValidationError
		errors.As(err, &ve)
		return fmt.Sprintf("我还需要知道：%s。比如可以说「三个人，想吃辣，有小孩一起吃」。",
			common.StringSliceToString(ve.MissingFields))
	}
	return "请告诉我用餐人数和口味偏好（比如：三个人，想吃辣）。"
}

// recommend 檢索候選並生成菜單，進入推薦態
func (c *Controller) recommend(ctx context.Context, session *Session) string {
	buckets := c.kb.RecommendCandidates(session.Prefs)
	if buckets.Total() == 0 {
		return "按目前的忌口条件找不到合适的菜，放宽一些忌口再试试？"
	}

	session.Menu = c.composer.Compose(ctx, session.Prefs, buckets)
	session.State = StateRecommendingMenu
	session.replace = nil

	var sb strings.Builder
	sb.WriteString("为你推荐这份菜单：\n")
	for i, item := range session.Menu.Items {
		sb.WriteString(fmt.Sprintf("%d. %s —— %s\n", i+1, item.Name, item.Reason))
	}
	sb.WriteString("满意的话回复「确认」，想换哪道菜直接告诉我。")
	return sb.String()
}

// handleRecommending 推薦態：先處理待選替換，再分類意圖
func (c *Controller) handleRecommending(ctx context.Context, session *Session, input string) string {
	if session.replace != nil {
		if reply, ok := c.resolvePendingReplace(session, input); ok {
			return reply
		}
		session.replace = nil
	}

	intent := c.classifyIntent(ctx, input, session.Menu)
	switch intent.Kind {
	case IntentConfirm:
		return c.confirmMenu(ctx, session)
	case IntentReplace:
		return c.offerAlternatives(session, intent.Dish)
	case IntentModify:
		return c.handleAwaiting(ctx, session, input)
	default:
		return "没太明白你的意思。满意请回复「确认」，想换某道菜可以说「把XX换掉」，也可以直接调整人数或口味。"
	}
}

// resolvePendingReplace 使用者從備選中挑了一個就執行替換
func (c *Controller) resolvePendingReplace(session *Session, input string) (string, bool) {
	for _, name := range session.replace.Alternatives {
		if strings.Contains(input, name) {
			dish := session.replace.Dish
			for i := range session.Menu.Items {
				if session.Menu.Items[i].Name == dish {
					session.Menu.Items[i] = common.MenuItem{
						Name:   name,
						Reason: fmt.Sprintf("按你的要求替换了 %s", dish),
					}
					break
				}
			}
			session.replace = nil
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("已把 %s 换成 %s。当前菜单：\n", dish, name))
			for i, item := range session.Menu.Items {
				sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Name))
			}
			sb.WriteString("满意的话回复「确认」。")
			return sb.String(), true
		}
	}
	return "", false
}

// offerAlternatives 為被換菜品計算備選並呈現，最多展示 3 個
func (c *Controller) offerAlternatives(session *Session, dish string) string {
	record, err := c.kb.GetByName(dish)
	if err != nil {
		return fmt.Sprintf("菜单里没有找到「%s」，想换哪道菜？", dish)
	}

	buckets := c.kb.RecommendCandidates(session.Prefs)
	alts := c.composer.Replace(dish, session.Prefs, session.Menu, buckets, menu.RoleOf(&record))
	if len(alts) == 0 {
		return fmt.Sprintf("符合偏好的同类菜都已经在菜单里了，%s 暂时没有可换的备选。", dish)
	}

	if len(alts) > 3 {
		alts = alts[:3]
	}
	names := make([]string, 0, len(alts))
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("可以把 %s 换成：\n", dish))
	for i, alt := range alts {
		names = append(names, alt.Record.Name)
		sb.WriteString(fmt.Sprintf("%d. %s（难度 %d）\n", i+1, alt.Record.Name, alt.Record.Difficulty))
	}
	sb.WriteString("想换哪个直接说菜名。")

	session.replace = &pendingReplace{Dish: dish, Alternatives: names}
	return sb.String()
}

// confirmMenu 確認菜單：解析完整記錄、生成採買清單與工作流、落指南
func (c *Controller) confirmMenu(ctx context.Context, session *Session) string {
	var confirmed []common.EnrichedRecord
	for _, item := range session.Menu.Items {
		record, err := c.kb.GetByName(item.Name)
		if err != nil {
			common.LogWarn("已確認菜品無法解析，已跳過",
				zap.String("菜名", item.Name),
				zap.Error(err),
			)
			continue
		}
		confirmed = append(confirmed, record)
	}
	if len(confirmed) == 0 {
		return "菜单里的菜都找不到完整菜谱，换一批试试？回复「重新开始」。"
	}
	session.Confirmed = confirmed

	session.State = StateGeneratingShoppingList
	shoppingList := BuildShoppingList(confirmed)

	session.State = StatePlanningWorkflow
	plan := c.planner.Plan(ctx, confirmed)

	guidePath := WriteGuide(c.guideDir, session.ID, session.Menu, shoppingList, plan, confirmed)
	session.State = StateReadyForQuestions

	var sb strings.Builder
	sb.WriteString("菜单已确认！\n\n")
	sb.WriteString(shoppingList)
	sb.WriteString("## 烹饪流程\n\n")
	for _, step := range plan.Plan {
		sb.WriteString(fmt.Sprintf("%d. %s（约 %d 分钟）\n", step.Step, step.Action, step.TimeMin))
	}
	sb.WriteString(fmt.Sprintf("\n预计总耗时 %d 分钟。", plan.TotalTimeMin))
	if guidePath != "" {
		sb.WriteString(fmt.Sprintf("\n完整烹饪指南已保存到 %s。", guidePath))
	}
	sb.WriteString("\n做的过程中有问题随时问我，比如「红烧肉怎么做」。")
	return sb.String()
}

// handleReady 就緒態：命中已確認菜品就給步驟與計量，否則給通用提示
func (c *Controller) handleReady(session *Session, input string) string {
	for i := range session.Confirmed {
		r := &session.Confirmed[i]
		if strings.Contains(input, r.Name) {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("## %s\n\n", r.Name))
			if quantities := strings.TrimSpace(r.Section(common.SectionQuantities)); quantities != "" {
				sb.WriteString("### 计量\n\n")
				sb.WriteString(quantities)
				sb.WriteString("\n\n")
			}
			if steps := strings.TrimSpace(r.Section(common.SectionSteps)); steps != "" {
				sb.WriteString("### 步骤\n\n")
				sb.WriteString(steps)
				sb.WriteString("\n")
			}
			return sb.String()
		}
	}
	return "可以问我已确认菜单里任何一道菜的做法，或者回复「重新开始」规划下一餐。"
}
