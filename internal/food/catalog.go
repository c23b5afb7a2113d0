// Package food は食品カロリーの静的カタログを提供する。
package food

import "strings"

// Item はカタログの1食品を表す。caloriesは1食分の目安。
type Item struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Category string `json:"category"`
	Veg      bool   `json:"veg"`
}

var items = []Item{
	{Name: "Roti (Wheat)", Calories: 104, Category: "Grains", Veg: true},
	{Name: "Rice (Cooked)", Calories: 130, Category: "Grains", Veg: true},
	{Name: "Dal (Moong)", Calories: 118, Category: "Pulses", Veg: true},
	{Name: "Dal (Toor)", Calories: 115, Category: "Pulses", Veg: true},
	{Name: "Rajma", Calories: 127, Category: "Pulses", Veg: true},
	{Name: "Chole", Calories: 164, Category: "Pulses", Veg: true},
	{Name: "Paneer", Calories: 265, Category: "Dairy", Veg: true},
	{Name: "Chicken Curry", Calories: 180, Category: "Non-Veg", Veg: false},
	{Name: "Fish Curry", Calories: 150, Category: "Non-Veg", Veg: false},
	{Name: "Egg Curry", Calories: 155, Category: "Non-Veg", Veg: false},
	{Name: "Aloo Sabzi", Calories: 85, Category: "Vegetables", Veg: true},
	{Name: "Bhindi Sabzi", Calories: 35, Category: "Vegetables", Veg: true},
	{Name: "Palak Sabzi", Calories: 23, Category: "Vegetables", Veg: true},
	{Name: "Mixed Vegetables", Calories: 55, Category: "Vegetables", Veg: true},
	{Name: "Idli (2 pieces)", Calories: 58, Category: "South Indian", Veg: true},
	{Name: "Dosa (Plain)", Calories: 168, Category: "South Indian", Veg: true},
	{Name: "Upma", Calories: 85, Category: "South Indian", Veg: true},
	{Name: "Poha", Calories: 76, Category: "Breakfast", Veg: true},
	{Name: "Paratha (Plain)", Calories: 126, Category: "Grains", Veg: true},
	{Name: "Biryani (Veg)", Calories: 290, Category: "Rice", Veg: true},
	{Name: "Biryani (Chicken)", Calories: 350, Category: "Rice", Veg: false},
}

// Catalog は読み取り専用の食品カタログ。
type Catalog struct {
	items []Item
}

// NewCatalog は組み込みの食品一覧を持つCatalogを生成する。
func NewCatalog() *Catalog {
	return &Catalog{items: items}
}

// Search は名前に query を含む食品を大文字小文字を区別せずに返す。
// queryが空の場合は全件を返す。返り値は呼び出し側で変更してよいコピー。
func (c *Catalog) Search(query string) []Item {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		if query == "" || strings.Contains(strings.ToLower(item.Name), query) {
			out = append(out, item)
		}
	}
	return out
}
