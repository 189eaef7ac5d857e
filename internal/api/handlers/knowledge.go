package handlers

import (
	"net/http"
	"strings"

	"cooking-agent/internal/core/knowledge"
	"cooking-agent/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// KnowledgeHandler 知識庫查詢接口處理器
type KnowledgeHandler struct {
	kb *knowledge.Base
}

// NewKnowledgeHandler 創建知識庫處理器
func NewKnowledgeHandler(kb *knowledge.Base) *KnowledgeHandler {
	return &KnowledgeHandler{kb: kb}
}

// recipeView 查詢結果投影，不帶語料全文
type recipeView struct {
	Name       string        `json:"name"`
	Category   string        `json:"category"`
	Difficulty int           `json:"difficulty"`
	Tags       common.TagSet `json:"tags"`
}

func toView(record *common.EnrichedRecord) recipeView {
	return recipeView{
		Name:       record.Name,
		Category:   string(record.Category),
		Difficulty: record.Difficulty,
		Tags:       record.Tags,
	}
}

// HandleSearch 按偏好檢索：taste/group/exclude 逗號分隔
func (h *KnowledgeHandler) HandleSearch(c *gin.Context) {
	prefs := common.Preferences{
		TastePreferences:     common.NormalizeTastes(splitParam(c.Query("taste"))),
		SpecialGroup:         common.NormalizeGroups(splitParam(c.Query("group"))),
		IngredientExclusions: splitParam(c.Query("exclude")),
	}

	records := h.kb.Search(prefs)
	views := make([]recipeView, 0, len(records))
	for i := range records {
		views = append(views, toView(&records[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(views),
		"recipes": views,
	})
}

// HandleGetByName 按菜名取完整記錄
func (h *KnowledgeHandler) HandleGetByName(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	record, err := h.kb.GetByName(name)
	if err != nil {
		common.WriteErrorResponse(c.Writer, http.StatusNotFound, "recipe not found: "+name)
		return
	}
	c.JSON(http.StatusOK, record)
}

// HandleStatistics 返回知識庫聚合統計
func (h *KnowledgeHandler) HandleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.kb.Stats())
}

// splitParam 拆逗號分隔的查詢參數，去空白與空項
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
