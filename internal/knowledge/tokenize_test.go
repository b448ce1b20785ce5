package knowledge

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"accents and stopwords", "¿Qué es el Balance de Situación?", []string{"balance", "situacion"}},
		{"enye folds", "Cuentas de AÑOS anteriores", []string{"cuentas", "anos", "anteriores"}},
		{"punctuation splits", "activo/pasivo, patrimonio-neto", []string{"activo", "pasivo", "patrimonio", "neto"}},
		{"digits kept", "Tema 14: PGC 2007", []string{"pgc", "2007"}},
		{"empty", "", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTerms_Unique(t *testing.T) {
	got := Terms("liquidez LIQUIDEZ solvencia líquidez")
	want := []string{"liquidez", "solvencia"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %v, want %v", got, want)
	}
}
