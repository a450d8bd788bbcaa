package categories

import (
	"time"

	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/model"
)

// Default describes one built-in category.
type Default struct {
	Name  string
	Icon  string
	Color string
	Hint  string
}

// Defaults is the built-in category set, in display order.
var Defaults = []Default{
	{Name: "Housing", Icon: "house", Color: "D06050", Hint: "Rent, mortgage, property"},
	{Name: "Utilities", Icon: "bolt", Color: "84CC16", Hint: "Power, water, internet"},
	{Name: "Groceries", Icon: "cart", Color: "5C7D60", Hint: "Supermarkets, food shopping"},
	{Name: "Dining", Icon: "cup.and.saucer", Color: "A67D54", Hint: "Restaurants, cafes, takeaway"},
	{Name: "Transport", Icon: "car", Color: "3B82F6", Hint: "Fuel, transit, car costs"},
	{Name: "Health", Icon: "heart", Color: "10B981", Hint: "Medical, dental, fitness"},
	{Name: "Subscriptions", Icon: "repeat", Color: "6366F1", Hint: "Recurring digital services"},
	{Name: "Shopping", Icon: "bag", Color: "9333EA", Hint: "General retail purchases"},
	{Name: "Entertainment", Icon: "tv", Color: "EC4899", Hint: "Events, streaming, hobbies"},
	{Name: "Travel", Icon: "airplane", Color: "F59E0B", Hint: "Flights, hotels, holidays"},
	{Name: "Insurance", Icon: "shield", Color: "64748B", Hint: "Health, home, car policies"},
	{Name: "Personal Care", Icon: "sparkles", Color: "A855F7", Hint: "Haircuts, beauty, self-care"},
	{Name: "Gifts", Icon: "gift", Color: "EF4444", Hint: "Presents, donations, charity"},
	{Name: "Education", Icon: "book", Color: "0EA5E9", Hint: "Courses, books, learning"},
	{Name: "Other", Icon: "ellipsis", Color: "9CA3AF", Hint: "Everything else"},
}

// DefaultSet returns the built-in categories with stable IDs.
func DefaultSet(now time.Time) []model.Category {
	out := make([]model.Category, len(Defaults))
	for i, d := range Defaults {
		out[i] = model.Category{
			ID:        id.Category(d.Name),
			Name:      d.Name,
			Icon:      d.Icon,
			Color:     d.Color,
			SortOrder: i,
			IsDefault: true,
			CreatedAt: now.UTC(),
		}
	}
	return out
}

// Hint returns the short description of a built-in category, or "".
func Hint(name string) string {
	for _, d := range Defaults {
		if d.Name == name {
			return d.Hint
		}
	}
	return ""
}
