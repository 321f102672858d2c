package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Pseudomonas aeruginosa colonization of the respiratory tract is the major
        cause of morbidity in patients with cystic fibrosis. Sputum cultures from 48
        children were examined for mucoid variants, and serum antibody titers against
        the exotoxin A were measured. Patients' pulmonary function declined faster
        when colonization preceded the age of five.`,
	"long": strings.Repeat(`Sweat chloride concentrations were determined by pilocarpine
        iontophoresis in 112 heterozygotes and 96 controls. No significant difference
        was found between the groups, although mean values for the obligate carriers
        were slightly higher. The sodium-potassium ratio of sweat did not discriminate
        carriers from normals, and neither did the response to beta-adrenergic
        stimulation of the submandibular glands. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkStemming(b *testing.B) {
	words := []string{
		"fibrosis", "colonization", "antibodies", "pancreatic",
		"insufficiency", "bronchiectasis", "secretions",
		"measurements", "heterozygotes", "inflammatory",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			tokens := tokenizer.Tokenize(w)
			_ = tokens
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "cystic fibrosis sweat chloride pancreatic enzymes "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}
