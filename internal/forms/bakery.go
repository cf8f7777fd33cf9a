package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/pekarna/internal/catalog"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/picker"
)

// Endpoints of the reference collections.
const (
	EndpointCurrency       = "buyable/currency"
	EndpointUnit           = "buyable/unit"
	EndpointProductionType = "production/type"
)

// Set is every bakery form, typed.
type Set struct {
	Registry *Registry

	Brands            *Form[model.Brand]
	Suppliers         *Form[model.Supplier]
	Buyables          *Form[model.Buyable]
	Ingredients       *Form[model.Ingredient]
	Recipes           *Form[model.Recipe]
	RecipeIngredients *Form[model.RecipeIngredient]
	RecipeLabour      *Form[model.RecipeLabour]
	SubRecipes        *Form[model.SubRecipe]
	Labourers         *Form[model.Labourer]
	ProductionLogs    *Form[model.ProductionLog]
	Invoices          *Form[model.Invoice]
	InvoiceLines      *Form[model.InvoiceLine]
	Currencies        *Form[model.Currency]
	Units             *Form[model.Unit]
	ProductionTypes   *Form[model.ProductionType]
}

func text(name, label string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputText}
}

func required(f Field) Field {
	f.Required = true
	return f
}

func number(name, label string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputNumber}
}

func checkbox(name, label string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputCheckbox}
}

func textarea(name, label string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputTextArea}
}

func date(name, label string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputDate}
}

func pick(name, label, endpoint string) Field {
	return Field{Name: name, Label: label, Kind: entity.InputPicker, Picker: endpoint}
}

func parent(name string) Field {
	return Field{Name: name, Kind: entity.InputNumber, Hidden: true, Required: true}
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}

// Bakery builds the forms of the back-office and registers them.
func Bakery() *Set {
	s := &Set{Registry: NewRegistry()}

	s.Brands = &Form[model.Brand]{
		meta: Meta{
			Name: "Brand", Title: "Brands",
			Endpoint: "buyable/brand", PrimaryKey: "brand_id",
			Collection: catalog.Brands, Searchable: true,
			Fields: []Field{
				required(text("brand_name", "Name")),
				text("website", "Website"),
			},
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Brand] { return dc.Brands },
		element: func(b model.Brand, _ *Names) picker.Element {
			return picker.Element{ID: b.BrandID, Title: b.BrandName, Subtitle: b.Website}
		},
	}

	s.Suppliers = &Form[model.Supplier]{
		meta: Meta{
			Name: "Supplier", Title: "Suppliers",
			Endpoint: "buyable/supplier", PrimaryKey: "supplier_id",
			Collection: catalog.Suppliers, Searchable: true,
			Fields: []Field{
				required(text("supplier_name", "Name")),
				text("account_number", "Account number"),
				text("contact_email", "Email"),
				text("phone", "Phone"),
				textarea("notes", "Notes"),
			},
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Supplier] { return dc.Suppliers },
		element: func(sp model.Supplier, _ *Names) picker.Element {
			return picker.Element{ID: sp.SupplierID, Title: sp.SupplierName, Subtitle: sp.AccountNumber}
		},
	}

	s.Buyables = &Form[model.Buyable]{
		meta: Meta{
			Name: "Buyable", Title: "Buyables",
			Endpoint: "buyable/buyable", PrimaryKey: "buyable_id",
			Collection: catalog.Buyables, Searchable: true,
			Fields: []Field{
				required(text("buyable_name", "Name")),
				pick("brand_id", "Brand", "buyable/brand"),
				pick("supplier_id", "Supplier", "buyable/supplier"),
				pick("unit_id", "Unit", EndpointUnit),
				number("pack_size", "Pack size"),
				number("price", "Price"),
				pick("currency_id", "Currency", EndpointCurrency),
				text("barcode", "Barcode"),
				checkbox("active", "Active"),
			},
		},
		empty:  func() model.Buyable { return model.Buyable{Active: true} },
		source: func(dc *catalog.Context) *catalog.Collection[model.Buyable] { return dc.Buyables },
		element: func(b model.Buyable, n *Names) picker.Element {
			return picker.Element{
				ID:       b.BuyableID,
				Title:    b.BuyableName,
				Subtitle: n.Of("buyable/brand", b.BrandID),
				ImageURL: b.ImageURL,
			}
		},
	}

	s.Ingredients = &Form[model.Ingredient]{
		meta: Meta{
			Name: "Ingredient", Title: "Ingredients",
			Endpoint: "recipe/ingredient", PrimaryKey: "ingredient_id",
			Collection: catalog.Ingredients, Searchable: true,
			Fields: []Field{
				required(text("ingredient_name", "Name")),
				pick("buyable_id", "Bought as", "buyable/buyable"),
				pick("unit_id", "Unit", EndpointUnit),
				number("cost_per_unit", "Cost per unit"),
				checkbox("allergen", "Allergen"),
			},
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Ingredient] { return dc.Ingredients },
		element: func(i model.Ingredient, n *Names) picker.Element {
			sub := n.Of("buyable/buyable", i.BuyableID)
			if i.Allergen {
				sub = joinNonEmpty(sub, "allergen")
			}
			return picker.Element{ID: i.IngredientID, Title: i.IngredientName, Subtitle: sub}
		},
	}

	s.Recipes = &Form[model.Recipe]{
		meta: Meta{
			Name: "Recipe", Title: "Recipes",
			Endpoint: "recipe/recipe", PrimaryKey: "recipe_id",
			Collection: catalog.Recipes, Searchable: true,
			Fields: []Field{
				required(text("recipe_name", "Name")),
				number("yield_quantity", "Yield"),
				pick("yield_unit_id", "Yield unit", EndpointUnit),
				pick("production_type_id", "Production type", EndpointProductionType),
				{Name: "method", Label: "Method", Kind: entity.InputTextArea, Sanitize: true},
				checkbox("active", "Active"),
			},
			Children: []Child{
				{Title: "Ingredients", Endpoint: "recipe/recipe_ingredient", ParentField: "recipe_id"},
				{Title: "Labour", Endpoint: "recipe/recipe_labour", ParentField: "recipe_id"},
				{Title: "Sub-recipes", Endpoint: "recipe/sub_recipe", ParentField: "recipe_id"},
			},
		},
		empty:  func() model.Recipe { return model.Recipe{Active: true} },
		source: func(dc *catalog.Context) *catalog.Collection[model.Recipe] { return dc.Recipes },
		element: func(r model.Recipe, n *Names) picker.Element {
			return picker.Element{ID: r.RecipeID, Title: r.RecipeName, Subtitle: n.Of(EndpointProductionType, r.ProductionTypeID)}
		},
	}

	s.RecipeIngredients = &Form[model.RecipeIngredient]{
		meta: Meta{
			Name: "Recipe ingredient", Title: "Recipe ingredients",
			Endpoint: "recipe/recipe_ingredient", PrimaryKey: "id",
			Fields: []Field{
				parent("recipe_id"),
				required(pick("ingredient_id", "Ingredient", "recipe/ingredient")),
				number("quantity", "Quantity"),
				pick("unit_id", "Unit", EndpointUnit),
			},
		},
		element: func(l model.RecipeIngredient, n *Names) picker.Element {
			return picker.Element{
				ID:       l.ID,
				Title:    n.Of("recipe/ingredient", l.IngredientID),
				Subtitle: joinNonEmpty(amount(l.Quantity), n.Of(EndpointUnit, l.UnitID)),
			}
		},
	}

	s.RecipeLabour = &Form[model.RecipeLabour]{
		meta: Meta{
			Name: "Recipe labour", Title: "Recipe labour",
			Endpoint: "recipe/recipe_labour", PrimaryKey: "id",
			Fields: []Field{
				parent("recipe_id"),
				required(pick("labourer_id", "Labourer", "labour/labourer")),
				number("minutes", "Minutes"),
			},
		},
		element: func(l model.RecipeLabour, n *Names) picker.Element {
			return picker.Element{
				ID:       l.ID,
				Title:    n.Of("labour/labourer", l.LabourerID),
				Subtitle: fmt.Sprintf("%s min", amount(l.Minutes)),
			}
		},
	}

	s.SubRecipes = &Form[model.SubRecipe]{
		meta: Meta{
			Name: "Sub-recipe", Title: "Sub-recipes",
			Endpoint: "recipe/sub_recipe", PrimaryKey: "id",
			Fields: []Field{
				parent("recipe_id"),
				required(pick("sub_recipe_id", "Recipe", "recipe/recipe")),
				number("quantity", "Quantity"),
			},
		},
		element: func(l model.SubRecipe, n *Names) picker.Element {
			return picker.Element{
				ID:       l.ID,
				Title:    n.Of("recipe/recipe", l.SubRecipeID),
				Subtitle: "× " + amount(l.Quantity),
			}
		},
	}

	s.Labourers = &Form[model.Labourer]{
		meta: Meta{
			Name: "Labourer", Title: "Labourers",
			Endpoint: "labour/labourer", PrimaryKey: "labourer_id",
			Collection: catalog.Labourers, Searchable: true,
			Fields: []Field{
				required(text("labourer_name", "Name")),
				number("hourly_rate", "Hourly rate"),
				pick("currency_id", "Currency", EndpointCurrency),
			},
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Labourer] { return dc.Labourers },
		element: func(l model.Labourer, n *Names) picker.Element {
			return picker.Element{
				ID:       l.LabourerID,
				Title:    l.LabourerName,
				Subtitle: joinNonEmpty(amount(l.HourlyRate), n.Of(EndpointCurrency, l.CurrencyID)),
			}
		},
	}

	s.ProductionLogs = &Form[model.ProductionLog]{
		meta: Meta{
			Name: "Production log", Title: "Production",
			Endpoint: "production/log", PrimaryKey: "id",
			Collection: catalog.ProductionLogs, Searchable: true,
			Fields: []Field{
				required(pick("recipe_id", "Recipe", "recipe/recipe")),
				pick("production_type_id", "Production type", EndpointProductionType),
				number("quantity", "Quantity"),
				date("produced_on", "Produced on"),
				textarea("notes", "Notes"),
			},
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.ProductionLog] { return dc.ProductionLogs },
		element: func(l model.ProductionLog, n *Names) picker.Element {
			return picker.Element{
				ID:       l.ID,
				Title:    n.Of("recipe/recipe", l.RecipeID),
				Subtitle: joinNonEmpty(l.ProducedOn, amount(l.Quantity)),
			}
		},
	}

	s.Invoices = &Form[model.Invoice]{
		meta: Meta{
			Name: "Invoice", Title: "Invoices",
			Endpoint: "invoice/invoice", PrimaryKey: "invoice_id",
			Collection: catalog.Invoices, Searchable: true,
			Fields: []Field{
				pick("supplier_id", "Supplier", "buyable/supplier"),
				required(text("invoice_number", "Number")),
				date("invoice_date", "Date"),
				number("total", "Total"),
				pick("currency_id", "Currency", EndpointCurrency),
				{Name: "status", Label: "Status", Kind: entity.InputSelect, Options: []Option{
					{Value: model.InvoiceStatusPending, Label: "Pending"},
					{Value: model.InvoiceStatusReviewed, Label: "Reviewed"},
					{Value: model.InvoiceStatusApproved, Label: "Approved"},
				}},
			},
			Children: []Child{
				{Title: "Lines", Endpoint: "invoice/invoice_line", ParentField: "invoice_id"},
			},
		},
		empty:  func() model.Invoice { return model.Invoice{Status: model.InvoiceStatusPending} },
		source: func(dc *catalog.Context) *catalog.Collection[model.Invoice] { return dc.Invoices },
		element: func(i model.Invoice, n *Names) picker.Element {
			return picker.Element{
				ID:       i.InvoiceID,
				Title:    i.InvoiceNumber,
				Subtitle: joinNonEmpty(n.Of("buyable/supplier", i.SupplierID), i.Status),
			}
		},
	}

	s.InvoiceLines = &Form[model.InvoiceLine]{
		meta: Meta{
			Name: "Invoice line", Title: "Invoice lines",
			Endpoint: "invoice/invoice_line", PrimaryKey: "id",
			Fields: []Field{
				parent("invoice_id"),
				pick("buyable_id", "Buyable", "buyable/buyable"),
				text("description", "Description"),
				number("quantity", "Quantity"),
				number("unit_price", "Unit price"),
			},
		},
		element: func(l model.InvoiceLine, n *Names) picker.Element {
			title := l.Description
			if l.BuyableID != 0 {
				title = n.Of("buyable/buyable", l.BuyableID)
			}
			return picker.Element{
				ID:       l.ID,
				Title:    title,
				Subtitle: fmt.Sprintf("%s × %s", amount(l.Quantity), amount(l.UnitPrice)),
			}
		},
	}

	s.Currencies = &Form[model.Currency]{
		meta: Meta{
			Name: "Currency", Title: "Currencies",
			Endpoint: EndpointCurrency, PrimaryKey: "currency_id",
			Collection: catalog.Currencies, ReadOnly: true,
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Currency] { return dc.Currencies },
		element: func(c model.Currency, _ *Names) picker.Element {
			return picker.Element{ID: c.CurrencyID, Title: c.Code, Subtitle: c.Name}
		},
	}

	s.Units = &Form[model.Unit]{
		meta: Meta{
			Name: "Unit", Title: "Units",
			Endpoint: EndpointUnit, PrimaryKey: "unit_id",
			Collection: catalog.Units, ReadOnly: true,
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.Unit] { return dc.Units },
		element: func(u model.Unit, _ *Names) picker.Element {
			return picker.Element{ID: u.UnitID, Title: u.Abbreviation, Subtitle: u.UnitName}
		},
	}

	s.ProductionTypes = &Form[model.ProductionType]{
		meta: Meta{
			Name: "Production type", Title: "Production types",
			Endpoint: EndpointProductionType, PrimaryKey: "production_type_id",
			Collection: catalog.ProductionTypes, ReadOnly: true,
		},
		source: func(dc *catalog.Context) *catalog.Collection[model.ProductionType] { return dc.ProductionTypes },
		element: func(p model.ProductionType, _ *Names) picker.Element {
			return picker.Element{ID: p.ProductionTypeID, Title: p.TypeName}
		},
	}

	for _, d := range []Descriptor{
		s.Brands, s.Suppliers, s.Buyables, s.Ingredients, s.Recipes,
		s.RecipeIngredients, s.RecipeLabour, s.SubRecipes, s.Labourers,
		s.ProductionLogs, s.Invoices, s.InvoiceLines,
		s.Currencies, s.Units, s.ProductionTypes,
	} {
		s.Registry.Register(d)
	}
	return s
}
