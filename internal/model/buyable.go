package model

// Brand is a manufacturer or label that buyables are sold under.
type Brand struct {
	BrandID   int64  `json:"brand_id" mapstructure:"brand_id"`
	BrandName string `json:"brand_name" mapstructure:"brand_name"`
	Website   string `json:"website,omitempty" mapstructure:"website"`
}

func (b Brand) Identity() int64 { return b.BrandID }

// Supplier is a company the bakery buys from.
type Supplier struct {
	SupplierID    int64  `json:"supplier_id" mapstructure:"supplier_id"`
	SupplierName  string `json:"supplier_name" mapstructure:"supplier_name"`
	AccountNumber string `json:"account_number" mapstructure:"account_number"`
	ContactEmail  string `json:"contact_email,omitempty" mapstructure:"contact_email"`
	Phone         string `json:"phone,omitempty" mapstructure:"phone"`
	Notes         string `json:"notes,omitempty" mapstructure:"notes"`
}

func (s Supplier) Identity() int64 { return s.SupplierID }

// Buyable is a purchasable product: a brand's pack of something, bought from
// a supplier at a price.
type Buyable struct {
	BuyableID   int64   `json:"buyable_id" mapstructure:"buyable_id"`
	BuyableName string  `json:"buyable_name" mapstructure:"buyable_name"`
	BrandID     int64   `json:"brand_id" mapstructure:"brand_id"`
	SupplierID  int64   `json:"supplier_id" mapstructure:"supplier_id"`
	UnitID      int64   `json:"unit_id" mapstructure:"unit_id"`
	PackSize    float64 `json:"pack_size" mapstructure:"pack_size"`
	Price       float64 `json:"price" mapstructure:"price"`
	CurrencyID  int64   `json:"currency_id" mapstructure:"currency_id"`
	Barcode     string  `json:"barcode,omitempty" mapstructure:"barcode"`
	ImageURL    string  `json:"image_url,omitempty" mapstructure:"image_url"`
	Active      bool    `json:"active" mapstructure:"active"`
}

func (b Buyable) Identity() int64 { return b.BuyableID }

// Currency is a reference record used by prices and rates.
type Currency struct {
	CurrencyID int64  `json:"currency_id" mapstructure:"currency_id"`
	Code       string `json:"code" mapstructure:"code"`
	Name       string `json:"name" mapstructure:"name"`
}

func (c Currency) Identity() int64 { return c.CurrencyID }

// Unit is a unit of measure (kg, l, piece).
type Unit struct {
	UnitID       int64  `json:"unit_id" mapstructure:"unit_id"`
	UnitName     string `json:"unit_name" mapstructure:"unit_name"`
	Abbreviation string `json:"abbreviation" mapstructure:"abbreviation"`
}

func (u Unit) Identity() int64 { return u.UnitID }
