package model

const (
	DefaultCategoryColor = "#3498db"
	DefaultCategoryIcon  = "📋"
)

// Category groups todos by area (work, health, shopping, etc.).
type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// CategoryInput carries the fields accepted when creating a category.
type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// DefaultCategories is the seed used when no category collection exists yet.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Work", Color: "#3498db", Icon: "💼"},
		{ID: 2, Name: "Personal", Color: "#e74c3c", Icon: "🏠"},
		{ID: 3, Name: "Shopping", Color: "#f39c12", Icon: "🛒"},
		{ID: 4, Name: "Health", Color: "#27ae60", Icon: "🏥"},
	}
}
