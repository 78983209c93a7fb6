package shop

import (
	"time"

	"github.com/samber/mo"
)

type Product struct {
	SKU      mo.Option[string]  `arx:"sku;pk"`
	Title    mo.Option[string]  `arx:"title;validate:constraint.MaxLength(80)"`
	Price    mo.Option[float64] `arx:"validate:constraint.Gt(0.0);validate:constraint.Lt(1e6)"`
	ListedAt mo.Option[time.Time]
	Draft    mo.Option[bool] `arx:"-"`
	Notes    string
}

func (p *Product) Table() string {
	return "products"
}

// Catalog is not an entity.
type Catalog struct {
	Products []Product
}
