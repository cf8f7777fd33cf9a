package model

// Invoice is a supplier invoice captured from a scan and reviewed by staff.
type Invoice struct {
	InvoiceID     int64   `json:"invoice_id" mapstructure:"invoice_id"`
	SupplierID    int64   `json:"supplier_id" mapstructure:"supplier_id"`
	InvoiceNumber string  `json:"invoice_number" mapstructure:"invoice_number"`
	InvoiceDate   string  `json:"invoice_date" mapstructure:"invoice_date"`
	Total         float64 `json:"total" mapstructure:"total"`
	CurrencyID    int64   `json:"currency_id" mapstructure:"currency_id"`
	Status        string  `json:"status" mapstructure:"status"`
}

func (i Invoice) Identity() int64 { return i.InvoiceID }

// Invoice review statuses.
const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusReviewed = "reviewed"
	InvoiceStatusApproved = "approved"
)

// InvoiceLine is one extracted line of an invoice, matched to a buyable.
type InvoiceLine struct {
	ID          int64   `json:"id" mapstructure:"id"`
	InvoiceID   int64   `json:"invoice_id" mapstructure:"invoice_id"`
	BuyableID   int64   `json:"buyable_id" mapstructure:"buyable_id"`
	Description string  `json:"description" mapstructure:"description"`
	Quantity    float64 `json:"quantity" mapstructure:"quantity"`
	UnitPrice   float64 `json:"unit_price" mapstructure:"unit_price"`
}

func (l InvoiceLine) Identity() int64 { return l.ID }
