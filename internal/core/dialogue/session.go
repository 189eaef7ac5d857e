package dialogue

import (
	"time"

	"cooking-agent/internal/pkg/common"
)

// State 對話狀態
type State string

const (
	StateAwaitingPreferences    State = "awaiting_preferences"
	StateRecommendingMenu       State = "recommending_menu"
	StateGeneratingShoppingList State = "generating_shopping_list"
	StatePlanningWorkflow       State = "planning_workflow"
	StateReadyForQuestions      State = "ready_for_questions"
)

// Turn 一輪對話訊息
type Turn struct {
	Role    string    `json:"role"` // user | assistant
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// pendingReplace 等待使用者從備選中挑一個的換菜請求
type pendingReplace struct {
	Dish         string
	Alternatives []string
}

// Session 單次互動會話，由一個 Controller 獨占。
// Reset 清空偏好/菜單/已確認集合與歷史，但不動底層知識庫。
type Session struct {
	ID        string                  `json:"id"`
	State     State                   `json:"state"`
	Prefs     common.Preferences      `json:"prefs"`
	Menu      common.Menu             `json:"menu"`
	Confirmed []common.EnrichedRecord `json:"confirmed"`
	History   []Turn                  `json:"history"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`

	replace *pendingReplace
}

// NewSession 創建新會話，初始狀態為等待偏好
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        common.GenerateUUID(),
		State:     StateAwaitingPreferences,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset 清空會話狀態，回到等待偏好
func (s *Session) Reset() {
	s.State = StateAwaitingPreferences
	s.Prefs = common.Preferences{}
	s.Menu = common.Menu{}
	s.Confirmed = nil
	s.History = nil
	s.replace = nil
	s.UpdatedAt = time.Now()
}

// Append 追加一輪訊息（歷史只增不改）
func (s *Session) Append(role, content string) {
	s.History = append(s.History, Turn{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
	s.UpdatedAt = time.Now()
}
