package catalog

import "github.com/shopspring/decimal"

var fallbackItems = []struct {
	name  string
	price int64
}{
	{"Paracetamol 500mg x 20", 2500},
	{"Ibuprofeno 400mg x 20", 3200},
	{"Amoxicilina 500mg x 16", 7800},
	{"Omeprazol 20mg x 28", 5400},
	{"Loratadina 10mg x 10", 2900},
	{"Enalapril 10mg x 30", 4100},
	{"Metformina 850mg x 30", 4600},
	{"Atorvastatina 20mg x 30", 8900},
	{"Levotiroxina 50mcg x 50", 6300},
	{"Diclofenac 75mg x 15", 3500},
	{"Salbutamol aerosol 100mcg", 9700},
	{"Clonazepam 0.5mg x 30", 5200},
}

// Fallback returns the embedded catalog used whenever the remote feed cannot
// be read. It always returns at least one item and never fails.
func Fallback() []Item {
	out := make([]Item, 0, len(fallbackItems))
	for _, f := range fallbackItems {
		out = append(out, NewItem(f.name, decimal.NewFromInt(f.price)))
	}
	return out
}
