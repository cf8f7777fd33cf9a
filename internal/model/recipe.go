package model

// Ingredient is something a recipe consumes, usually backed by a buyable.
type Ingredient struct {
	IngredientID   int64   `json:"ingredient_id" mapstructure:"ingredient_id"`
	IngredientName string  `json:"ingredient_name" mapstructure:"ingredient_name"`
	BuyableID      int64   `json:"buyable_id" mapstructure:"buyable_id"`
	UnitID         int64   `json:"unit_id" mapstructure:"unit_id"`
	CostPerUnit    float64 `json:"cost_per_unit" mapstructure:"cost_per_unit"`
	Allergen       bool    `json:"allergen" mapstructure:"allergen"`
}

func (i Ingredient) Identity() int64 { return i.IngredientID }

// Recipe describes how to produce a yield of some product.
type Recipe struct {
	RecipeID         int64   `json:"recipe_id" mapstructure:"recipe_id"`
	RecipeName       string  `json:"recipe_name" mapstructure:"recipe_name"`
	YieldQuantity    float64 `json:"yield_quantity" mapstructure:"yield_quantity"`
	YieldUnitID      int64   `json:"yield_unit_id" mapstructure:"yield_unit_id"`
	ProductionTypeID int64   `json:"production_type_id" mapstructure:"production_type_id"`
	Method           string  `json:"method,omitempty" mapstructure:"method"`
	Active           bool    `json:"active" mapstructure:"active"`
}

func (r Recipe) Identity() int64 { return r.RecipeID }

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	ID           int64   `json:"id" mapstructure:"id"`
	RecipeID     int64   `json:"recipe_id" mapstructure:"recipe_id"`
	IngredientID int64   `json:"ingredient_id" mapstructure:"ingredient_id"`
	Quantity     float64 `json:"quantity" mapstructure:"quantity"`
	UnitID       int64   `json:"unit_id" mapstructure:"unit_id"`
}

func (l RecipeIngredient) Identity() int64 { return l.ID }

// RecipeLabour is one labour line of a recipe: who works on it and for how long.
type RecipeLabour struct {
	ID         int64   `json:"id" mapstructure:"id"`
	RecipeID   int64   `json:"recipe_id" mapstructure:"recipe_id"`
	LabourerID int64   `json:"labourer_id" mapstructure:"labourer_id"`
	Minutes    float64 `json:"minutes" mapstructure:"minutes"`
}

func (l RecipeLabour) Identity() int64 { return l.ID }

// SubRecipe nests one recipe inside another (a dough inside a loaf).
type SubRecipe struct {
	ID          int64   `json:"id" mapstructure:"id"`
	RecipeID    int64   `json:"recipe_id" mapstructure:"recipe_id"`
	SubRecipeID int64   `json:"sub_recipe_id" mapstructure:"sub_recipe_id"`
	Quantity    float64 `json:"quantity" mapstructure:"quantity"`
}

func (s SubRecipe) Identity() int64 { return s.ID }
