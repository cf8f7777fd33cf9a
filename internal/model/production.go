package model

// Labourer is a member of staff whose time is costed into recipes.
type Labourer struct {
	LabourerID   int64   `json:"labourer_id" mapstructure:"labourer_id"`
	LabourerName string  `json:"labourer_name" mapstructure:"labourer_name"`
	HourlyRate   float64 `json:"hourly_rate" mapstructure:"hourly_rate"`
	CurrencyID   int64   `json:"currency_id" mapstructure:"currency_id"`
}

func (l Labourer) Identity() int64 { return l.LabourerID }

// ProductionType groups recipes and logs (bread, pastry, cake).
type ProductionType struct {
	ProductionTypeID int64  `json:"production_type_id" mapstructure:"production_type_id"`
	TypeName         string `json:"type_name" mapstructure:"type_name"`
}

func (p ProductionType) Identity() int64 { return p.ProductionTypeID }

// ProductionLog records a batch produced on a given day.
type ProductionLog struct {
	ID               int64   `json:"id" mapstructure:"id"`
	RecipeID         int64   `json:"recipe_id" mapstructure:"recipe_id"`
	ProductionTypeID int64   `json:"production_type_id" mapstructure:"production_type_id"`
	Quantity         float64 `json:"quantity" mapstructure:"quantity"`
	ProducedOn       string  `json:"produced_on" mapstructure:"produced_on"`
	Notes            string  `json:"notes,omitempty" mapstructure:"notes"`
}

func (p ProductionLog) Identity() int64 { return p.ID }
