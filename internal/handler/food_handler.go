package handler

import (
	"net/http"

	"github.com/hitoshi/fitlog/internal/food"
)

// FoodSearcher は食品カタログ検索のインターフェース。
type FoodSearcher interface {
	Search(query string) []food.Item
}

// FoodHandler は食品カタログのHTTPハンドラー。
type FoodHandler struct {
	catalog FoodSearcher
}

// NewFoodHandler はFoodHandlerを生成する。
func NewFoodHandler(catalog FoodSearcher) *FoodHandler {
	return &FoodHandler{catalog: catalog}
}

// Search は名前に検索語を含む食品を返す。
// GET /api/foods?search=q
func (h *FoodHandler) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Search(r.URL.Query().Get("search")))
}
