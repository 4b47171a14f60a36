package restock

// FilterCandidates keeps the products that can be sold at a profit and reports how many
// were dropped.
func FilterCandidates(products []Product) ([]Product, int) {
	valid := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Price > 0 && p.Cost > 0 && p.Price > p.Cost {
			valid = append(valid, p)
		}
	}
	return valid, len(products) - len(valid)
}
