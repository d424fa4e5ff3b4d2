package fieldmap

import "github.com/matzehuels/fieldbook/pkg/fieldbook"

// palette is a qualitative color cycle for genotypes.
var palette = []string{
	"#E41A1C", "#377EB8", "#4DAF4A", "#984EA3", "#FF7F00", "#FFFF33",
	"#A65628", "#F781BF", "#999999", "#66C2A5", "#FC8D62", "#8DA0CB",
}

const (
	emptyFill   = "#F4F4F4"
	gridStroke  = "#FFFFFF"
	blockStroke = "#333333"
	textColor   = "#111111"
)

// colorMap assigns palette colors in genotype order: Book.Genotypes when
// set, otherwise order of first appearance.
func colorMap(book *fieldbook.Book) map[string]string {
	genotypes := book.Genotypes
	if len(genotypes) == 0 {
		genotypes = book.DistinctGenotypes()
	}
	colors := make(map[string]string, len(genotypes))
	for i, g := range genotypes {
		colors[g] = palette[i%len(palette)]
	}
	for _, g := range book.DistinctGenotypes() {
		if _, ok := colors[g]; !ok {
			colors[g] = palette[len(colors)%len(palette)]
		}
	}
	return colors
}

// textOn picks a readable label color for a fill.
func textOn(fill string) string {
	switch fill {
	case "#377EB8", "#984EA3", "#A65628", "#E41A1C":
		return "#FFFFFF"
	}
	return textColor
}
