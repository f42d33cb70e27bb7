package model

// All lists every table the service migrates, parents before children.
func All() []any {
	return []any{
		&Privilege{}, &Role{}, &User{},
		&Category{}, &Product{}, &Batch{},
		&Order{}, &OrderDetail{},
		&Sale{}, &SalesDetail{},
		&StockMovement{}, &StockOpname{},
	}
}
