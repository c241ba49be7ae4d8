package model

// Product is a catalog row.  This struct corresponds to a row in the
// `products` table and is also the wire shape returned by the API.
//
// Fields:
//   - ID: primary key identifier, assigned by the store.
//   - Name: non-empty display label.
//   - Description: optional free text (null when absent).
//   - Price: whole currency units, never negative.
//   - Stock: quantity on hand, never negative.
type Product struct {
	ID          uint64  `json:"id"`          // products.id
	Name        string  `json:"name"`        // products.name
	Description *string `json:"description"` // products.description
	Price       int64   `json:"price"`       // products.price
	Stock       int64   `json:"stock"`       // products.stock
}

// ProductInput carries the fields needed to create a Product.  It is the
// output of request decoding and the unit of work for seeding.
type ProductInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       int64   `json:"price"`
	Stock       int64   `json:"stock"`
}

// Product returns the row that would be stored for in with the given id.
func (in ProductInput) Product(id uint64) Product {
	return Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	}
}
